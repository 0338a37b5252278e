// internal/app/features/letters/routes.go
package letters

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /letter. Every endpoint requires a session token.
func Routes(h *Handler, requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireAuth)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleSend)
	r.Get("/{letterId}", h.ServeLetter)
	r.Post("/{letterId}/reply", h.HandleReply)
	return r
}
