// internal/app/system/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/crushnote/internal/app/system/apperr"
)

type ctxKey string

const emailKey ctxKey = "authEmail"

// ErrorWriter renders a failed authentication. The HTTP layer supplies it so
// this package stays free of response formatting.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Verifier turns a presented token into an email.
type Verifier interface {
	Verify(raw string) (string, error)
}

// RequireAuth reads the token from the Authorization header, either bare or
// as "Bearer <token>", and puts the email into the request context.
func RequireAuth(v Verifier, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := v.Verify(TokenFromRequest(r))
			if err != nil {
				if !apperr.Is(err, apperr.KindUnauthorized) {
					err = apperr.Unauthorized("Invalid token.")
				}
				writeErr(w, r, err)
				return
			}
			next.ServeHTTP(w, withEmail(r, email))
		})
	}
}

// TokenFromRequest extracts the raw token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// CurrentEmail returns the authenticated email and whether one is present.
func CurrentEmail(r *http.Request) (string, bool) {
	email, ok := r.Context().Value(emailKey).(string)
	return email, ok && email != ""
}

// WithTestEmail injects an authenticated email, bypassing token checks.
// For handler tests only.
func WithTestEmail(r *http.Request, email string) *http.Request {
	return withEmail(r, email)
}

func withEmail(r *http.Request, email string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), emailKey, email))
}
