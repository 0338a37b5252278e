// internal/app/features/letters/letters.go
package letters

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/services/lettersvc"
	"github.com/dalemusser/crushnote/internal/app/system/auth"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeList returns the caller's sent letters and the received letters that
// have been delivered.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	vs, err := h.Svc.List(ctx, email)
	if err != nil {
		h.ErrLog.Write(w, r, "letter_list", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, vs)
}

// ServeLetter returns one letter.
func (h *Handler) ServeLetter(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Svc.Get(ctx, email, chi.URLParam(r, "letterId"))
	if err != nil {
		h.ErrLog.Write(w, r, "letter_get", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, v)
}

type sendRequest struct {
	FromGroupID string `json:"fromGroupId"`
	ToEmail     string `json:"toEmail"`
	Alias       string `json:"alias"`
	Content     string `json:"content"`
}

// HandleSend sends a letter.
//
// POST /letter → 201 {"message": "Letter sent successfully", "letterId": "...", "letter": {...}}
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	var req sendRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "letter_send", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, err := h.Svc.Send(ctx, email, lettersvc.SendInput{
		FromGroupID: req.FromGroupID,
		ToEmail:     req.ToEmail,
		Alias:       req.Alias,
		Content:     req.Content,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "letter_send", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":  "Letter sent successfully",
		"letterId": v.ID,
		"letter":   v,
	})
}

type replyRequest struct {
	Content string `json:"content"`
}

// HandleReply records the recipient's one reply.
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	var req replyRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "letter_reply", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Svc.Reply(ctx, email, chi.URLParam(r, "letterId"), req.Content)
	if err != nil {
		h.ErrLog.Write(w, r, "letter_reply", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Reply sent",
		"letter":  v,
	})
}
