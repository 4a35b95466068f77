package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// AuthConfig enables HS256 bearer-token verification when Secret is set.
// Issuer and Audience are checked only when non-empty.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Enabled reports whether requests must carry a token.
func (c AuthConfig) Enabled() bool { return strings.TrimSpace(c.Secret) != "" }

// JWTClaims are the registered claims the API understands. The subject
// becomes the actor stamped on movements, closures and audit entries.
type JWTClaims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Audience  any    `json:"aud,omitempty"` // string or []string
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

var (
	errNoToken       = errors.New("missing bearer token")
	errMalformed     = errors.New("malformed token")
	errAlgorithm     = errors.New("unsupported alg")
	errSignature     = errors.New("invalid signature")
	errExpired       = errors.New("token expired or not yet valid")
	errWrongIssuer   = errors.New("unexpected issuer")
	errWrongAudience = errors.New("unexpected audience")
	errNoSubject     = errors.New("token has no subject")
)

type claimsKey struct{}

func claimsFrom(ctx context.Context) (JWTClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(JWTClaims)
	return c, ok
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// segment decodes one base64url part; padding is optional.
func segment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// verify checks signature and registered claims of an HS256 token.
func (c AuthConfig) verify(token string, now time.Time) (JWTClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return JWTClaims{}, errMalformed
	}
	var hdr struct {
		Alg string `json:"alg"`
	}
	raw, err := segment(parts[0])
	if err != nil || json.Unmarshal(raw, &hdr) != nil {
		return JWTClaims{}, errMalformed
	}
	if !strings.EqualFold(hdr.Alg, "HS256") {
		return JWTClaims{}, errAlgorithm
	}
	sig, err := segment(parts[2])
	if err != nil {
		return JWTClaims{}, errMalformed
	}
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(c.Secret)))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return JWTClaims{}, errSignature
	}

	var claims JWTClaims
	if raw, err = segment(parts[1]); err != nil || json.Unmarshal(raw, &claims) != nil {
		return JWTClaims{}, errMalformed
	}
	unix := now.Unix()
	if (claims.NotBefore != 0 && unix < claims.NotBefore) || (claims.ExpiresAt != 0 && unix >= claims.ExpiresAt) {
		return JWTClaims{}, errExpired
	}
	if iss := strings.TrimSpace(c.Issuer); iss != "" && !strings.EqualFold(claims.Issuer, iss) {
		return JWTClaims{}, errWrongIssuer
	}
	if aud := strings.TrimSpace(c.Audience); aud != "" && !audContains(claims.Audience, aud) {
		return JWTClaims{}, errWrongAudience
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return JWTClaims{}, errNoSubject
	}
	return claims, nil
}

func audContains(aud any, expected string) bool {
	switch v := aud.(type) {
	case string:
		return strings.EqualFold(v, expected)
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && strings.EqualFold(s, expected) {
				return true
			}
		}
	}
	return false
}

// openPaths skip authentication.
var openPaths = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

// authJWT enforces Authorization: Bearer <HS256 JWT> when a secret is configured
// and stores the verified claims in the request context.
func authJWT(cfg AuthConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			tok, ok := bearerToken(r)
			if !ok {
				writeErr(w, http.StatusUnauthorized, errNoToken.Error(), "unauthorized")
				return
			}
			claims, err := cfg.verify(tok, time.Now())
			if err != nil {
				writeErr(w, http.StatusUnauthorized, err.Error(), "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
