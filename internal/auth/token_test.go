package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, exp, err := signer.Issue("admin@blkboxlogic.com", "admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry %v is not in the future", exp)
	}
	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Sub != "admin@blkboxlogic.com" || claims.Role != "admin" || claims.JTI == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := signer.Issue("admin", "admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	signer.now = time.Now
	if _, err := signer.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Parse() error = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, _ := signer.Issue("admin", "admin")

	other := NewSigner("other-secret", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Parse() with wrong secret error = %v", err)
	}
	for _, bad := range []string{"", "abc", "a.b.c", token + "x"} {
		if _, err := signer.Parse(bad); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidToken", bad, err)
		}
	}
}

func TestFromRequest(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, _ := signer.Issue("admin", "admin")

	r := httptest.NewRequest("GET", "/api/contact", nil)
	if _, err := signer.FromRequest(r); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("FromRequest() without header error = %v", err)
	}
	r.Header.Set("Authorization", "bearer "+token)
	claims, err := signer.FromRequest(r)
	if err != nil {
		t.Fatalf("FromRequest() error = %v", err)
	}
	if claims.Sub != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
