// internal/app/system/auth/cookie.go
package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// OAuthCookieMaxAge bounds how long a browser may take to return from the
// identity provider.
const OAuthCookieMaxAge = 10 * 60

// NewOAuthCookieStore returns a signed and encrypted cookie store for the
// OAuth redirect flow. Both keys are derived from secret. secure marks the
// cookie Secure; it should be false only for local http development.
func NewOAuthCookieStore(secret string, secure bool) (*sessions.CookieStore, error) {
	hashKey, err := DeriveKey(secret, "crushnote oauth cookie", 32)
	if err != nil {
		return nil, err
	}
	blockKey, err := DeriveKey(secret, "crushnote oauth cookie encryption", 32)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/auth/google",
		MaxAge:   OAuthCookieMaxAge,
		Secure:   secure,
		HttpOnly: true,
		// The callback is a top-level navigation from Google, which Lax allows.
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}
