// internal/app/features/groups/routes.go
package groups

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /group. Every endpoint requires a session token.
func Routes(h *Handler, requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireAuth)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/invitation", h.HandleInvitation)
	r.Patch("/{groupId}", h.HandleUpdate)
	r.Delete("/{groupId}", h.HandleDelete)
	r.Post("/{groupId}/leave", h.HandleLeave)
	return r
}
