// internal/app/features/authapi/routes.go
package authapi

import (
	"github.com/dalemusser/shipyard/internal/app/system/authz"
	"github.com/dalemusser/shipyard/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes mounts the authentication API under /api/auth. The public
// endpoints share one per-IP limiter.
func Routes(h *Handler, limiter *ratelimit.Limiter, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pub chi.Router) {
		pub.Use(limiter.Middleware(logger))
		pub.Post("/", h.Authenticate)
		pub.Post("/oauth/logout", h.OAuthLogout)
		pub.Post("/oauth/verifyToken", h.VerifyToken)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireCaller)
		pr.Post("/logout", h.Logout)
	})

	return r
}
