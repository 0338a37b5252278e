// internal/app/features/profile/routes.go
package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /user. Login is public and guarded by loginLimit;
// everything else requires a session token.
func Routes(h *Handler, requireAuth, loginLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(loginLimit).Post("/login", h.HandleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(requireAuth)
		pr.Get("/profile", h.ServeProfile)
		pr.Patch("/profile", h.HandleUpdate)
		pr.Post("/get-names", h.HandleNames)
	})
	return r
}
