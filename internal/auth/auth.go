// Package auth guards the admin reprice surface with bearer tokens signed by
// a shared secret.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-decor/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// TokenValidator parses and validates admin access tokens.
type TokenValidator struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// Parse verifies the token signature and registered claims and returns the
// subject.
func (v TokenValidator) Parse(raw string) (string, error) {
	if len(v.Secret) == 0 {
		return "", errors.New("auth: signing secret not configured")
	}
	options := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.Secret),
		jwt.WithValidate(true),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	tok, err := jwt.ParseString(raw, options...)
	if err != nil {
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	return tok.Subject(), nil
}

// Middleware enforces bearer authentication on admin routes.
type Middleware struct {
	Validator TokenValidator
}

// RequireAuth rejects requests without a valid bearer token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractBearer(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		if _, err := m.Validator.Parse(raw); err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", errNoToken
	}
	raw := strings.TrimSpace(header[7:])
	if raw == "" {
		return "", errNoToken
	}
	return raw, nil
}
