package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/movie-discovery/internal/app"
	"github.com/Clark-Hu/movie-discovery/internal/config"
)

// fakeTMDB serves canned catalog responses and counts requests per path.
type fakeTMDB struct {
	hits map[string]*atomic.Int32
}

func newFakeTMDB(tb testing.TB) *httptest.Server {
	tb.Helper()
	f := &fakeTMDB{hits: map[string]*atomic.Int32{}}
	for _, p := range []string{"/movie/popular", "/movie/top_rated", "/movie/now_playing", "/movie/upcoming"} {
		f.hits[p] = &atomic.Int32{}
	}
	srv := httptest.NewServer(f)
	tb.Cleanup(srv.Close)
	return srv
}

func (f *fakeTMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("api_key") != "test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
		return
	}
	if c, ok := f.hits[r.URL.Path]; ok {
		c.Add(1)
	}
	page := r.URL.Query().Get("page")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasPrefix(r.URL.Path, "/movie/") && f.hits[r.URL.Path] != nil:
		name := strings.TrimPrefix(r.URL.Path, "/movie/")
		_, _ = w.Write([]byte(`{"page":` + page + `,"total_pages":2,"total_results":2,"results":[{"id":1` + page + `,"title":"` + name + ` ` + page + `"}]}`))
	case r.URL.Path == "/movie/550":
		_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club","runtime":139,"release_date":"1999-10-15",
			"poster_path":"/fc.jpg","backdrop_path":"/fc-bg.jpg",
			"genres":[{"id":18,"name":"Drama"}],
			"credits":{"cast":[{"id":819,"name":"Edward Norton","character":"Narrator","profile_path":"/en.jpg"},{"id":287,"name":"Brad Pitt","character":"Tyler Durden"}],"crew":[{"id":7467,"name":"David Fincher","job":"Director"}]},
			"videos":{"results":[{"key":"abc","site":"YouTube","type":"Trailer","official":true}]},
			"similar":{"page":1,"results":[{"id":807,"title":"Se7en"}]}}`))
	case r.URL.Path == "/movie/404":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
	case r.URL.Path == "/movie/500":
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_code":11,"status_message":"Internal error"}`))
	case r.URL.Path == "/search/movie":
		_, _ = w.Write([]byte(`{"page":` + page + `,"total_pages":1,"total_results":1,"results":[{"id":603,"title":"` + r.URL.Query().Get("query") + `","poster_path":"/m.jpg"}]}`))
	case r.URL.Path == "/genre/movie/list":
		_, _ = w.Write([]byte(`{"genres":[{"id":28,"name":"Action"},{"id":18,"name":"Drama"}]}`))
	case r.URL.Path == "/discover/movie":
		_, _ = w.Write([]byte(`{"page":` + page + `,"total_pages":5,"total_results":100,"results":[{"id":2` + page + `,"genre_ids":[` + r.URL.Query().Get("with_genres") + `]}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"not found"}`))
	}
}

func testConfig() config.Config {
	return config.Config{
		Port:             "0",
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
		CORSOrigins:      "*",
		TMDBTimeoutSecs:  2,
		DocstoreDriver:   config.DriverMemory,
		SessionTTLHours:  1,
	}
}

// buildTestServer runs the full application over an in-memory docstore and a fake catalog API.
func buildTestServer(tb testing.TB, mutate func(*config.Config)) *Server {
	tb.Helper()
	tmdbSrv := newFakeTMDB(tb)

	cfg := testConfig()
	cfg.TMDBBaseURL = tmdbSrv.URL
	cfg.TMDBAPIKey = "test-key"
	cfg.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		tb.Fatalf("app.New: %v", err)
	}
	tb.Cleanup(a.Close)
	return New(cfg, a, nil)
}

func doRequest(tb testing.TB, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	tb.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			tb.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(tb testing.TB, rr *httptest.ResponseRecorder, dst any) {
	tb.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		tb.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(tb testing.TB, rr *httptest.ResponseRecorder, want int) {
	tb.Helper()
	if rr.Code != want {
		tb.Fatalf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func expectErrorCode(tb testing.TB, rr *httptest.ResponseRecorder, status int, code string) {
	tb.Helper()
	expectStatus(tb, rr, status)
	var resp errorResponse
	decodeBody(tb, rr, &resp)
	if resp.Code != code {
		tb.Fatalf("error code = %q, want %q (message %q)", resp.Code, code, resp.Message)
	}
}

func TestHealthz(t *testing.T) {
	srv := buildTestServer(t, nil)

	rr := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	expectStatus(t, rr, http.StatusOK)

	var resp healthResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "ok" || !resp.Components.Catalog || !resp.Components.Ratings || !resp.Components.Identity {
		t.Fatalf("health = %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := buildTestServer(t, nil)
	doRequest(t, srv, http.MethodGet, "/api/genres", nil)

	rr := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "movies_api_requests_total") {
		t.Fatalf("metrics output missing api counter")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := buildTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/movie/1/rating", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("missing Access-Control-Allow-Origin, headers = %v", rr.Header())
	}
}
