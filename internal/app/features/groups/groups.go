// internal/app/features/groups/groups.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/services/groupsvc"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/auth"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeList returns the groups the caller belongs to or is invited to.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	gs, err := h.Svc.ListFor(ctx, email)
	if err != nil {
		h.ErrLog.Write(w, r, "group_list", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, gs)
}

type createRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	InvitedEmails []string `json:"invitedEmails"`
}

// HandleCreate creates a group owned by the caller.
//
// POST /group → 201 {"id": "...", "message": "Group created successfully", "group": {...}}
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	var req createRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "group_create", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Svc.Create(ctx, email, groupsvc.CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		InvitedEmails: req.InvitedEmails,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "group_create", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":      g.ID.Hex(),
		"message": "Group created successfully",
		"group":   g,
	})
}

type updateRequest struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	MemberEmails  *[]string `json:"memberEmails"`
	InvitedEmails *[]string `json:"invitedEmails"`
}

// HandleUpdate applies the creator's edit to a group.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	var req updateRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "group_update", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Svc.Update(ctx, email, chi.URLParam(r, "groupId"), groupsvc.Patch{
		Name:          req.Name,
		Description:   req.Description,
		MemberEmails:  req.MemberEmails,
		InvitedEmails: req.InvitedEmails,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "group_update", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Group updated successfully",
		"group":   g,
	})
}

// HandleDelete deletes a group the caller created.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Svc.Delete(ctx, email, chi.URLParam(r, "groupId")); err != nil {
		h.ErrLog.Write(w, r, "group_delete", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"message": "Group deleted"})
}

// HandleLeave removes the caller from a group's members.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Svc.Leave(ctx, email, chi.URLParam(r, "groupId")); err != nil {
		h.ErrLog.Write(w, r, "group_leave", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"message": "Left group"})
}

type invitationRequest struct {
	ID       string `json:"id"`
	IsAccept *bool  `json:"isAccept"`
}

// HandleInvitation accepts or declines a pending invitation.
//
// POST /group/invitation {"id": "...", "isAccept": true}
func (h *Handler) HandleInvitation(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	var req invitationRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "group_respond", err)
		return
	}
	if req.ID == "" {
		h.ErrLog.Write(w, r, "group_respond", apperr.Validation("Group ID is required."))
		return
	}
	if req.IsAccept == nil {
		h.ErrLog.Write(w, r, "group_respond", apperr.Validation("isAccept is required."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Svc.Respond(ctx, email, req.ID, *req.IsAccept); err != nil {
		h.ErrLog.Write(w, r, "group_respond", err)
		return
	}
	msg := "Invitation declined"
	if *req.IsAccept {
		msg = "Invitation accepted"
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}
