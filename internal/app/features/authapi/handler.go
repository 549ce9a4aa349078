// internal/app/features/authapi/handler.go
package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/shipyard/internal/app/store/audit"
	userstore "github.com/dalemusser/shipyard/internal/app/store/users"
	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/app/system/httperr"
	"github.com/dalemusser/shipyard/internal/app/system/revoke"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/app/system/tokens"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.uber.org/zap"
)

// maxBody caps request bodies on the public endpoints.
const maxBody = 64 << 10

// UserFinder looks users up by username. *userstore.Store implements it.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// SettingsGetter returns the full console settings.
type SettingsGetter interface {
	Get(ctx context.Context) (models.Settings, error)
}

type Handler struct {
	Users    UserFinder
	Settings SettingsGetter
	Tokens   *tokens.Service
	Revoke   *revoke.Service
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users UserFinder, settings SettingsGetter, tok *tokens.Service, rv *revoke.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Settings: settings,
		Tokens:   tok,
		Revoke:   rv,
		AuditLog: audit,
		Log:      logger,
	}
}

type authenticatePayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authenticateResponse struct {
	JWT string `json:"jwt"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Authenticate handles POST /api/auth.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var p authenticatePayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&p); err != nil {
		httperr.Write(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" || p.Password == "" {
		httperr.Write(w, http.StatusBadRequest, "Invalid request payload", errors.New("username and password are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	settings, err := h.Settings.Get(ctx)
	if err != nil {
		h.Log.Error("auth: load settings", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve settings from the database", err)
		return
	}

	u, err := h.Users.GetByUsername(ctx, p.Username)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, p.Username)
		httperr.Write(w, http.StatusUnprocessableEntity, "Invalid credentials", nil)
		return
	}
	if err != nil {
		h.Log.Error("auth: user lookup", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve a user with the specified username from the database", err)
		return
	}
	if u.Status == userstore.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &u.ID, p.Username)
		httperr.Write(w, http.StatusForbidden, "User is disabled", nil)
		return
	}
	if !userstore.VerifyPassword(u, p.Password) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, p.Username)
		httperr.Write(w, http.StatusUnprocessableEntity, "Invalid credentials", nil)
		return
	}
	if settings.AuthenticationMethod == models.AuthenticationOAuth && !u.IsAdmin() {
		httperr.Write(w, http.StatusForbidden, "Only administrators can sign in with a password when OAuth is enabled", nil)
		return
	}

	raw, _, err := h.Tokens.Issue(*u)
	if err != nil {
		h.Log.Error("auth: issue token", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to generate JWT token", err)
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, "api", u.Username)
	httperr.JSON(w, http.StatusOK, authenticateResponse{JWT: raw})
}

// Logout handles POST /api/auth/logout for an authenticated caller. It runs
// the same server-side revocation as GET /logout?performApiLogout=true.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rv := h.Revoke.For(w, r)
	caller, ok := rv.Caller()
	if !ok {
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve user details from authentication token", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Logout())
	defer cancel()

	if err := rv.Logout(ctx, true); err != nil {
		h.Log.Error("auth: logout", zap.Error(err), zap.String("user_id", caller.UserID.Hex()))
		httperr.Write(w, http.StatusInternalServerError, "Unable to revoke token", err)
		return
	}
	if caller.Token != "" {
		h.AuditLog.TokenRevoked(ctx, r, &caller.UserID, "api_logout")
	}

	w.WriteHeader(http.StatusNoContent)
}

// OAuthLogout handles POST /api/auth/oauth/logout, the identity provider's
// back-channel logout. The body names the token to block.
func (h *Handler) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		httperr.Write(w, http.StatusInternalServerError, "Unable to block token", err)
		return
	}

	content, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		httperr.Write(w, http.StatusInternalServerError, "Unable to find content-type", err)
		return
	}
	if content != "application/x-www-form-urlencoded" && content != "text/plain" {
		httperr.Write(w, http.StatusInternalServerError, "Invalid content type", nil)
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		httperr.Write(w, http.StatusInternalServerError, "Cannot parse body", err)
		return
	}

	token := values.Get("logoutRequest")
	if token != "" {
		if err := h.Tokens.RevokeForeign(r.Context(), token); err != nil {
			h.Log.Error("auth: back-channel revoke", zap.Error(err))
			httperr.Write(w, http.StatusInternalServerError, "Unable to block token", err)
			return
		}
	}
	h.AuditLog.OAuthBackchannelLogout(r.Context(), r)

	w.WriteHeader(http.StatusOK)
}

// VerifyToken handles POST /api/auth/oauth/verifyToken.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	raw := tokens.FromRequest(r)
	if raw == "" {
		httperr.Write(w, http.StatusBadRequest, "Missing token", tokens.ErrMissingToken)
		return
	}

	_, err := h.Tokens.Parse(r.Context(), raw)
	httperr.JSON(w, http.StatusOK, verifyResponse{Valid: err == nil})
}
