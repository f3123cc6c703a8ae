package daemon

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"clipforge/internal/config"
)

// tokenLeeway tolerates small clock differences when validating signed tokens.
const tokenLeeway = time.Minute

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// authenticator validates bearer tokens against the static API token and,
// when configured, HS256 tokens signed with the shared JWT secret.
type authenticator struct {
	token  string
	secret []byte
	issuer string
	now    func() time.Time
}

func newAuthenticator(cfg *config.Config) *authenticator {
	a := &authenticator{
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		issuer: strings.TrimSpace(cfg.Auth.JWTIssuer),
		now:    time.Now,
	}
	if secret := strings.TrimSpace(cfg.Auth.JWTSecret); secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

func (a *authenticator) enabled() bool {
	return a != nil && (a.token != "" || len(a.secret) > 0)
}

// middleware rejects requests without a valid "Authorization: Bearer" header.
// When neither a token nor a secret is configured every request passes.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	if !a.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.verify(r.Header.Get("Authorization")); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="clipforge"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *authenticator) verify(header string) error {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return ErrMissingToken
	}
	if a.token != "" && subtle.ConstantTimeCompare([]byte(raw), []byte(a.token)) == 1 {
		return nil
	}
	if len(a.secret) == 0 {
		return ErrInvalidToken
	}

	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var claims jwt.Claims
	if err := tok.Claims(a.secret, &claims); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	expected := jwt.Expected{Time: a.now()}
	if a.issuer != "" {
		expected.Issuer = a.issuer
	}
	if err := claims.ValidateWithLeeway(expected, tokenLeeway); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Expiry == nil {
		return fmt.Errorf("%w: token has no expiry", ErrInvalidToken)
	}
	return nil
}

// IssueToken signs an HS256 API token for subject valid for ttl.
func IssueToken(cfg *config.Config, subject string, ttl time.Duration) (string, error) {
	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret == "" {
		return "", errors.New("auth.jwt_secret is not configured")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}
	now := time.Now()
	claims := jwt.Claims{
		Issuer:   strings.TrimSpace(cfg.Auth.JWTIssuer),
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
