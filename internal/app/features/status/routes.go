// internal/app/features/status/routes.go
package status

import (
	"github.com/dalemusser/shipyard/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Mount registers the status endpoints on the /api router.
func Mount(r chi.Router, h *Handler) {
	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireCaller)
		pr.Get("/backup/status", h.ServeBackupStatus)
		pr.Get("/licenses/info", h.ServeLicenseInfo)
		pr.Get("/system/nodes", h.ServeNodesCount)
		pr.Get("/kubernetes/token", h.ServeKubernetesToken)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(authz.RequireAdmin)
		ar.Put("/backup/status", h.ServeRecordBackup)
	})
}
