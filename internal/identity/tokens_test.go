package identity

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := TokenService{Secret: []byte("s3cret"), TTL: time.Hour}
	token, exp, err := svc.Issue("user-1", "u@example.com", time.Time{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry %v already passed", exp)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "u@example.com" {
		t.Fatalf("claims = %+v", claims)
	}

	other := TokenService{Secret: []byte("different"), TTL: time.Hour}
	if _, err := other.Parse(token); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	if _, _, err := (TokenService{}).Issue("u", "e", time.Now()); err == nil {
		t.Fatal("expected error without secret")
	}
}
