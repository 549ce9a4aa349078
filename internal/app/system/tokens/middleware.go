package tokens

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// ClaimsFrom returns the verified claims attached by Middleware.
func ClaimsFrom(ctx context.Context) (*Claims, string, bool) {
	v, ok := ctx.Value(ctxKey{}).(attached)
	if !ok {
		return nil, "", false
	}
	return v.claims, v.raw, true
}

type attached struct {
	claims *Claims
	raw    string
}

// WithClaims attaches claims to ctx.
func WithClaims(ctx context.Context, c *Claims, raw string) context.Context {
	return context.WithValue(ctx, ctxKey{}, attached{claims: c, raw: raw})
}

// Middleware attaches verified claims when the request carries a valid,
// non-revoked bearer token. Requests without one pass through untouched.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := FromRequest(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.Parse(r.Context(), raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims, raw)))
	})
}
