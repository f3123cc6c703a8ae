package daemon

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"clipforge/internal/testsupport"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestStaticTokenAuth(t *testing.T) {
	f := newFixture(t, testsupport.WithAPIToken("s3cret"))
	h := f.handler(t)

	if w := do(t, h, http.MethodGet, "/api/filters", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/filters", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/filters", nil, "Authorization", "Bearer s3cret"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestSignedTokenAuth(t *testing.T) {
	f := newFixture(t, testsupport.WithJWTSecret(testSecret))
	h := f.handler(t)

	token, err := IssueToken(f.cfg, "cli", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if w := do(t, h, http.MethodGet, "/api/filters", nil, "Authorization", "Bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with signed token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSignedTokenRejections(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJWTSecret(testSecret))
	auth := newAuthenticator(cfg)

	if err := auth.verify(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}

	token, err := IssueToken(cfg, "cli", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	auth.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	if err := auth.verify("Bearer " + token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejection, got %v", err)
	}

	auth.now = time.Now
	auth.issuer = "someone-else"
	if err := auth.verify("Bearer " + token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer rejection, got %v", err)
	}

	other := testsupport.NewConfig(t, testsupport.WithJWTSecret("ffffffffffffffffffffffffffffffff"))
	forged, err := IssueToken(other, "cli", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	auth.issuer = cfg.Auth.JWTIssuer
	if err := auth.verify("Bearer " + forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature rejection, got %v", err)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := IssueToken(cfg, "cli", time.Hour); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}
