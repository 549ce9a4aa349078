// internal/app/features/login/oauth.go
package login

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/store/audit"
	"github.com/dalemusser/shipyard/internal/app/store/sessions"
	userstore "github.com/dalemusser/shipyard/internal/app/store/users"
	"github.com/dalemusser/shipyard/internal/app/system/oauthclient"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/oauth/login                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeOAuthLogin stores a fresh state in the session and sends the browser
// to the identity provider.
func (h *Handler) ServeOAuthLogin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	settings, err := h.Settings.Get(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load settings", err, "A server error occurred.", "/login")
		return
	}
	if settings.AuthenticationMethod != models.AuthenticationOAuth {
		redirectWithError(w, r, "oauth_disabled")
		return
	}

	state, err := generateState()
	if err != nil {
		h.ErrLog.LogServerError(w, r, "generate oauth state", err, "A server error occurred.", "/login")
		return
	}

	target, err := oauthclient.AuthCodeURL(settings.OAuthSettings, state)
	if err != nil {
		h.Log.Warn("oauth login requested but provider is not configured", zap.Error(err))
		redirectWithError(w, r, "oauth_disabled")
		return
	}

	if err := h.SessionMgr.SetOAuthState(w, r, state); err != nil {
		h.ErrLog.LogServerError(w, r, "save oauth state", err, "A server error occurred.", "/login")
		return
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/oauth/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeOAuthCallback finishes the round-trip started by ServeOAuthLogin.
func (h *Handler) ServeOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if e := query.Get(r, "error"); e != "" {
		h.Log.Info("oauth provider returned an error", zap.String("error", e))
		redirectWithError(w, r, "oauth_denied")
		return
	}

	want := h.SessionMgr.OAuthState(r)
	got := query.Get(r, "state")
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		h.Log.Warn("oauth callback with invalid state")
		redirectWithError(w, r, "invalid_state")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	settings, err := h.Settings.Get(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load settings", err, "A server error occurred.", "/login")
		return
	}

	ident, err := oauthclient.Authenticate(ctx, settings.OAuthSettings, query.Get(r, "code"))
	if err != nil {
		h.Log.Warn("oauth authentication failed", zap.Error(err))
		redirectWithError(w, r, "oauth_failed")
		return
	}

	u, err := h.Users.GetOrCreateOAuthUser(ctx, ident.Username, settings.OAuthSettings.OAuthAutoCreateUsers)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, ident.Username)
		redirectWithError(w, r, "unknown_user")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "oauth user lookup", err, "A server error occurred.", "/login")
		return
	}
	if u.Status == userstore.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &u.ID, ident.Username)
		redirectWithError(w, r, "account_disabled")
		return
	}

	if err := h.signIn(w, r, u, sessions.CreatedByOAuth); err != nil {
		h.ErrLog.LogServerError(w, r, "save session", err, "Unable to create session. Please try again.", "/login")
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+code, http.StatusSeeOther)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
