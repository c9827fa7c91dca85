package httpserver

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Clark-Hu/movie-discovery/internal/config"
	"github.com/Clark-Hu/movie-discovery/internal/session"
)

func TestAuthFlow(t *testing.T) {
	srv := buildTestServer(t, nil)
	creds := credentialsRequest{Email: "viewer@example.com", Password: "hunter22"}

	rr := doRequest(t, srv, http.MethodPost, "/api/auth/register", creds)
	expectStatus(t, rr, http.StatusCreated)
	var registered userResponse
	decodeBody(t, rr, &registered)
	if registered.User.UID == "" || registered.User.Email != creds.Email {
		t.Fatalf("registered user = %+v", registered.User)
	}

	expectErrorCode(t, doRequest(t, srv, http.MethodPost, "/api/auth/register", creds), http.StatusConflict, "CONFLICT")

	expectStatus(t, doRequest(t, srv, http.MethodPost, "/api/auth/logout", nil), http.StatusNoContent)
	rr = doRequest(t, srv, http.MethodGet, "/api/auth/session", nil)
	var state session.State
	decodeBody(t, rr, &state)
	if state.User != nil {
		t.Fatalf("user after logout = %+v", state.User)
	}

	bad := credentialsRequest{Email: creds.Email, Password: "wrong-password"}
	expectErrorCode(t, doRequest(t, srv, http.MethodPost, "/api/auth/login", bad), http.StatusUnauthorized, "UNAUTHORIZED")

	rr = doRequest(t, srv, http.MethodPost, "/api/auth/login", creds)
	expectStatus(t, rr, http.StatusOK)
	rr = doRequest(t, srv, http.MethodGet, "/api/auth/session", nil)
	decodeBody(t, rr, &state)
	if state.User == nil || state.User.UID != registered.User.UID {
		t.Fatalf("session after login = %+v", state)
	}
	if state.Loading || state.Error != "" {
		t.Fatalf("session flags after login = %+v", state)
	}
}

func TestAuthValidation(t *testing.T) {
	srv := buildTestServer(t, nil)

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"bad email", credentialsRequest{Email: "not-an-email", Password: "hunter22"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"short password", credentialsRequest{Email: "a@b.co", Password: "abc"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"empty body", nil, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectErrorCode(t, doRequest(t, srv, http.MethodPost, "/api/auth/register", tc.body), tc.status, tc.code)
		})
	}
}

func TestAuthUnconfigured(t *testing.T) {
	srv := buildTestServer(t, func(cfg *config.Config) {
		cfg.JWTSecret = ""
	})
	creds := credentialsRequest{Email: "viewer@example.com", Password: "hunter22"}

	expectErrorCode(t, doRequest(t, srv, http.MethodPost, "/api/auth/login", creds), http.StatusServiceUnavailable, "NOT_CONFIGURED")
	expectErrorCode(t, doRequest(t, srv, http.MethodPost, "/api/auth/register", creds), http.StatusServiceUnavailable, "NOT_CONFIGURED")
	expectStatus(t, doRequest(t, srv, http.MethodPost, "/api/auth/logout", nil), http.StatusNoContent)

	rr := doRequest(t, srv, http.MethodGet, "/api/auth/session", nil)
	var state session.State
	decodeBody(t, rr, &state)
	if state.Error == "" {
		t.Fatal("session error slot should report the missing provider")
	}
}

func TestAuthRateLimit(t *testing.T) {
	srv := buildTestServer(t, func(cfg *config.Config) {
		cfg.AuthRateLimit = 2
	})
	creds := credentialsRequest{Email: "nobody@example.com", Password: "hunter22"}

	for i := 0; i < 2; i++ {
		expectStatus(t, doRequest(t, srv, http.MethodPost, "/api/auth/login", creds), http.StatusUnauthorized)
	}
	expectStatus(t, doRequest(t, srv, http.MethodPost, "/api/auth/login", creds), http.StatusTooManyRequests)

	// The session read is not limited.
	expectStatus(t, doRequest(t, srv, http.MethodGet, "/api/auth/session", nil), http.StatusOK)
}

func TestAuthRejectsOversizedBody(t *testing.T) {
	srv := buildTestServer(t, nil)

	body := map[string]string{"email": "big@example.com", "password": strings.Repeat("x", maxRequestBody)}
	rr := doRequest(t, srv, http.MethodPost, "/api/auth/login", body)
	expectErrorCode(t, rr, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE")
	if srv.app.Session.CurrentUser() != nil {
		t.Fatal("oversized login must not sign anyone in")
	}
}
