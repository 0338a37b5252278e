// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/crushnote/internal/app/services/profilesvc"
	"github.com/dalemusser/crushnote/internal/app/store/oauthstate"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	cookieName = "crushnote_oauth"
	stateTTL   = 10 * time.Minute

	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler runs the server-side Google OAuth2 redirect flow. It ends by
// sending the browser back to the web client with a session token in the
// URL fragment.
type Handler struct {
	Profiles   *profilesvc.Service
	StateStore *oauthstate.Store
	Cookies    sessions.Store
	Log        *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://api.crushnote.app/auth/google/callback"
	WebURL       string // where the browser lands after login

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func NewHandler(
	profiles *profilesvc.Service,
	stateStore *oauthstate.Store,
	cookies sessions.Store,
	clientID, clientSecret, baseURL, webURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Profiles:     profiles,
		StateStore:   stateStore,
		Cookies:      cookies,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		WebURL:       webURL,
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured reports whether a client ID and secret are set.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.redirectToWeb(w, r, "error", "google_not_configured")
		return
	}

	state := generateState()
	if state == "" {
		h.Log.Error("failed to generate OAuth state")
		h.redirectToWeb(w, r, "error", "internal")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.StateStore.Save(ctx, state, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.redirectToWeb(w, r, "error", "internal")
		return
	}

	// Bind the state to this browser as well, so a callback carrying a state
	// minted for someone else is refused.
	sess, err := h.Cookies.New(r, cookieName)
	if err != nil {
		h.Log.Debug("discarding unreadable oauth cookie", zap.Error(err))
	}
	sess.Values["state"] = state
	if err := sess.Save(r, w); err != nil {
		h.Log.Error("failed to write oauth cookie", zap.Error(err))
		h.redirectToWeb(w, r, "error", "internal")
		return
	}

	authURL := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("redirect_url", authURL))
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", q.Get("error_description")))
		h.redirectToWeb(w, r, "error", "google_denied")
		return
	}

	state := q.Get("state")
	if !h.cookieStateMatches(w, r, state) {
		h.Log.Warn("OAuth state does not match browser cookie")
		h.redirectToWeb(w, r, "error", "invalid_state")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	valid, err := h.StateStore.Consume(ctx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.redirectToWeb(w, r, "error", "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.redirectToWeb(w, r, "error", "invalid_state")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.redirectToWeb(w, r, "error", "invalid_code")
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.redirectToWeb(w, r, "error", "token_exchange")
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.redirectToWeb(w, r, "error", "user_info")
		return
	}
	if !info.EmailVerified {
		h.Log.Info("Google OAuth: email not verified", zap.String("email", info.Email))
		h.redirectToWeb(w, r, "error", "email_not_verified")
		return
	}

	sess, err := h.Profiles.LoginEmail(ctx, info.Email)
	if err != nil {
		h.Log.Error("Google OAuth: login failed", zap.String("email", info.Email), zap.Error(err))
		h.redirectToWeb(w, r, "error", "internal")
		return
	}
	h.redirectToWeb(w, r, "token", sess.Token)
}

// cookieStateMatches compares state with the value stored in the browser's
// oauth cookie and expires the cookie either way.
func (h *Handler) cookieStateMatches(w http.ResponseWriter, r *http.Request, state string) bool {
	sess, err := h.Cookies.Get(r, cookieName)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			h.Log.Warn("oauth cookie invalid", zap.Error(err))
		} else {
			h.Log.Warn("oauth cookie unreadable", zap.Error(err))
		}
		return false
	}
	want, _ := sess.Values["state"].(string)

	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		h.Log.Warn("failed to clear oauth cookie", zap.Error(err))
	}

	return state != "" && want != "" && subtle.ConstantTimeCompare([]byte(state), []byte(want)) == 1
}

// redirectToWeb sends the browser to the web client with key=value in the
// URL fragment, which never reaches a server log.
func (h *Handler) redirectToWeb(w http.ResponseWriter, r *http.Request, key, value string) {
	target := h.WebURL + "#" + key + "=" + url.QueryEscape(value)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Google user info                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// generateState returns 32 random bytes, URL-safe encoded, or "" when the
// system random source fails.
func generateState() string {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
