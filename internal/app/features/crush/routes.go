// internal/app/features/crush/routes.go
package crush

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /crush. Every endpoint requires a session token.
func Routes(h *Handler, requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireAuth)

	r.Get("/", h.ServeCurrent)
	r.Post("/", h.HandleSubmit)
	r.Delete("/", h.HandleDelete)
	r.Get("/history", h.ServeHistory)
	return r
}
