// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/services/profilesvc"
	"github.com/dalemusser/crushnote/internal/app/system/auth"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
)

type loginRequest struct {
	Credential string `json:"credential"`
}

// HandleLogin exchanges a Google ID-token credential for a session token.
//
// POST /user/login {"credential": "..."} → 200 {"token": "...", "user": {...}}
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "login", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sess, err := h.Svc.Login(ctx, req.Credential)
	if err != nil {
		h.ErrLog.Write(w, r, "login", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, sess)
}

// ServeProfile returns the caller's profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Svc.Get(ctx, email)
	if err != nil {
		h.ErrLog.Write(w, r, "profile_get", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}

type updateRequest struct {
	Name *string `json:"name"`
	Lang *string `json:"lang"`
}

// HandleUpdate applies a partial profile update.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	var req updateRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "profile_update", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Svc.Update(ctx, email, profilesvc.ProfilePatch{Name: req.Name, Lang: req.Lang})
	if err != nil {
		h.ErrLog.Write(w, r, "profile_update", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated",
		"user":    u,
	})
}

type namesRequest struct {
	Emails []string `json:"emails"`
}

// HandleNames maps emails to display names.
//
// POST /user/get-names {"emails": [...]} → 200 {"a@x.com": "Amy", ...}
func (h *Handler) HandleNames(w http.ResponseWriter, r *http.Request) {
	var req namesRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "profile_lookup_names", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	names, err := h.Svc.LookupNames(ctx, req.Emails)
	if err != nil {
		h.ErrLog.Write(w, r, "profile_lookup_names", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, names)
}
