package auth

import (
	"testing"
	"time"

	"github.com/niggl1/interfoneapp/internal/config"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "issuer",
		JWTAudience:    "aud",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "user-1", "Maria", "resident")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected token string")
	}

	claims, err := m.Verify(tok, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Name != "Maria" || claims.Role != "resident" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "u", "n", "resident")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := NewManager(config.AuthConfig{JWTSecret: "secret-a", AccessTokenTTL: time.Minute})
	b, _ := NewManager(config.AuthConfig{JWTSecret: "secret-b", AccessTokenTTL: time.Minute})

	tok, err := a.Issue(time.Now(), "u", "n", "resident")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Verify(tok, time.Now()); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestNewVisitor_MintsIDWhenEmpty(t *testing.T) {
	v := NewVisitor("", "", "")
	if !v.IsVisitor() || v.VisitorID == "" {
		t.Fatalf("expected minted visitor id, got %+v", v)
	}
	if v.DisplayName == "" {
		t.Fatalf("expected default display name")
	}

	w := NewVisitor("abc", "Jo", "555")
	if w.VisitorID != "abc" || w.DisplayName != "Jo" || w.Phone != "555" {
		t.Fatalf("expected supplied fields kept, got %+v", w)
	}
	if v.Key() != v.VisitorID {
		t.Fatalf("expected visitor key to be visitor id")
	}
}
