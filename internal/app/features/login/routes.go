// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves the password sign-in page under /login.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.Post("/", h.HandleLoginPost)
	return r
}

// OAuthRoutes serves the identity-provider round-trip under /auth/oauth.
func OAuthRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/login", h.ServeOAuthLogin)
	r.Get("/callback", h.ServeOAuthCallback)
	return r
}
