// internal/app/features/crush/handler.go
package crush

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/services/crushsvc"
	"github.com/dalemusser/crushnote/internal/app/system/auth"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler owns the /crush endpoints.
type Handler struct {
	Svc    *crushsvc.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *crushsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:    svc,
		Log:    logger,
		ErrLog: errLog,
	}
}

// ServeCurrent returns the caller's slot for this month, or null.
func (h *Handler) ServeCurrent(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Svc.Get(ctx, email)
	if err != nil {
		h.ErrLog.Write(w, r, "crush_get", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, v)
}

type submitRequest struct {
	ToEmail string `json:"toEmail"`
	Message string `json:"message"`
}

// HandleSubmit creates or re-targets the caller's slot for this month.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	var req submitRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, "crush_submit", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Svc.Submit(ctx, email, crushsvc.SubmitInput{ToEmail: req.ToEmail, Message: req.Message})
	if err != nil {
		h.ErrLog.Write(w, r, "crush_submit", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Crush saved successfully",
		"crush":   v,
	})
}

// HandleDelete removes the caller's slot for this month.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Svc.Delete(ctx, email); err != nil {
		h.ErrLog.Write(w, r, "crush_delete", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"message": "Crush deleted"})
}

// ServeHistory lists the caller's slots from earlier months.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.CurrentEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	vs, err := h.Svc.History(ctx, email)
	if err != nil {
		h.ErrLog.Write(w, r, "crush_history", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, vs)
}
