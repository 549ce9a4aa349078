// internal/app/features/settings/routes.go
package settings

import (
	"github.com/dalemusser/shipyard/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/settings. The public projection needs no caller.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/public", h.ServePublic)

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireAdmin)
		pr.Get("/", h.ServeGet)
		pr.Put("/", h.ServeUpdate)
	})

	return r
}
