package v1

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

// JWTClaims are the registered claims checked on bearer tokens.
type JWTClaims struct {
    Issuer    string `json:"iss,omitempty"`
    Subject   string `json:"sub,omitempty"`
    Audience  any    `json:"aud,omitempty"` // string or []string
    ExpiresAt int64  `json:"exp,omitempty"`
    NotBefore int64  `json:"nbf,omitempty"`
    IssuedAt  int64  `json:"iat,omitempty"`
}

func parseBearerToken(r *http.Request) (string, bool) {
    h := r.Header.Get("Authorization")
    if h == "" { return "", false }
    if !strings.HasPrefix(h, "Bearer ") && !strings.HasPrefix(h, "bearer ") { return "", false }
    return strings.TrimSpace(h[len("Bearer "):]), true
}

func base64URLDecode(s string) ([]byte, error) {
    // JWT uses base64url without padding
    if m := len(s) % 4; m != 0 {
        s += strings.Repeat("=", 4-m)
    }
    return base64.URLEncoding.DecodeString(s)
}

func verifyHS256(token, secret string) (JWTClaims, error) {
    var empty JWTClaims
    parts := strings.Split(token, ".")
    if len(parts) != 3 {
        return empty, errors.New("invalid token format")
    }
    headerB, err := base64URLDecode(parts[0])
    if err != nil {
        return empty, errors.New("bad header b64")
    }
    payloadB, err := base64URLDecode(parts[1])
    if err != nil {
        return empty, errors.New("bad payload b64")
    }
    sigB, err := base64URLDecode(parts[2])
    if err != nil {
        return empty, errors.New("bad signature b64")
    }

	// Expect alg HS256
	var hdr struct{ Alg, Typ string }
	if err := json.Unmarshal(headerB, &hdr); err != nil {
		return empty, errors.New("bad header json")
	}
	if !strings.EqualFold(hdr.Alg, "HS256") {
		return empty, errors.New("unsupported alg")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(parts[0]))
	mac.Write([]byte{"."[0]})
	mac.Write([]byte(parts[1]))
	sum := mac.Sum(nil)
	if !hmac.Equal(sigB, sum) {
		return empty, errors.New("invalid signature")
	}

    var claims JWTClaims
    if err := json.Unmarshal(payloadB, &claims); err != nil {
        return empty, errors.New("bad claims json")
    }
    return claims, nil
}

func audContains(aud any, expected string) bool {
	if expected == "" {
		return true
	}
	switch v := aud.(type) {
	case string:
		return strings.EqualFold(v, expected)
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && strings.EqualFold(s, expected) {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if strings.EqualFold(s, expected) {
				return true
			}
		}
	}
	return false
}

// AuthConfig enables HS256 bearer tokens when Secret is set. Issuer and
// Audience are checked only when non-empty.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type actorKey struct{}

// actorFrom returns the acting user resolved by authenticate, or "".
func actorFrom(r *http.Request) string {
	a, _ := r.Context().Value(actorKey{}).(string)
	return a
}

// authenticate resolves the actor of each /v1 request. With a secret the actor
// is the verified token subject; without one it is the X-Actor-ID header.
func authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	secret := strings.TrimSpace(cfg.Secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/v1/") || strings.HasPrefix(r.URL.Path, "/v1/dictionary/") {
				next.ServeHTTP(w, r)
				return
			}
			if secret == "" {
				actor := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
				return
			}
			tok, ok := parseBearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			claims, err := verifyHS256(tok, secret)
			if err != nil {
				unauthorized(w)
				return
			}
			now := time.Now().Unix()
			if claims.NotBefore != 0 && now < claims.NotBefore {
				unauthorized(w)
				return
			}
			if claims.ExpiresAt != 0 && now >= claims.ExpiresAt {
				unauthorized(w)
				return
			}
			if cfg.Issuer != "" && !strings.EqualFold(claims.Issuer, cfg.Issuer) {
				unauthorized(w)
				return
			}
			if cfg.Audience != "" && !audContains(claims.Audience, cfg.Audience) {
				unauthorized(w)
				return
			}
			if strings.TrimSpace(claims.Subject) == "" {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, claims.Subject)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeErr(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
}
