// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/app/system/httperr"
	"github.com/dalemusser/shipyard/internal/app/system/tokens"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller is the authenticated principal of a request, from either the
// browser session or an API bearer token.
type Caller struct {
	UserID primitive.ObjectID
	Name   string
	Role   string

	// Token is the raw bearer token when the caller authenticated with one.
	Token  string
	Claims *tokens.Claims

	// ActivitySessionID is set for browser sessions.
	ActivitySessionID string
}

// ViaToken reports whether the caller used an API token.
func (c Caller) ViaToken() bool { return c.Token != "" }

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// CallerFrom returns the request's caller. The session user wins over token
// claims. A malformed user ID fails closed.
func CallerFrom(r *http.Request) (Caller, bool) {
	if u, ok := auth.CurrentUser(r); ok {
		id, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return Caller{}, false
		}
		c := Caller{
			UserID:            id,
			Name:              u.Name,
			Role:              strings.ToLower(u.Role),
			ActivitySessionID: u.ActivitySessionID,
		}
		// A browser may also carry a token; keep it so logout can revoke it.
		if claims, raw, ok := tokens.ClaimsFrom(r.Context()); ok && claims.UserID() == u.ID {
			c.Token, c.Claims = raw, claims
		}
		return c, true
	}

	if claims, raw, ok := tokens.ClaimsFrom(r.Context()); ok {
		id, err := primitive.ObjectIDFromHex(claims.UserID())
		if err != nil {
			return Caller{}, false
		}
		return Caller{
			UserID: id,
			Name:   claims.Username,
			Role:   strings.ToLower(claims.Role),
			Token:  raw,
			Claims: claims,
		}, true
	}

	return Caller{}, false
}

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// With no caller it returns "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	c, ok := CallerFrom(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	return c.Role, c.Name, c.UserID, true
}

// IsAdmin reports whether the current request's caller is an admin.
func IsAdmin(r *http.Request) bool {
	c, ok := CallerFrom(r)
	return ok && c.IsAdmin()
}

// RequireCaller rejects API requests without a session user or valid token.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFrom(r); !ok {
			httperr.Write(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects API requests from non-admin callers.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFrom(r)
		if !ok {
			httperr.Write(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		if !c.IsAdmin() {
			httperr.Write(w, http.StatusForbidden, "Access denied to resource", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
