// internal/app/features/settings/handler.go
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/app/system/authz"
	"github.com/dalemusser/shipyard/internal/app/system/httperr"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

const maxBody = 64 << 10

// Store reads and writes the settings document.
// *settingsstore.Store implements it.
type Store interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

// Handler owns the settings API.
type Handler struct {
	Store    Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		AuditLog: audit,
		Log:      logger,
	}
}

// ServePublic handles GET /api/settings/public. No authentication.
func (h *Handler) ServePublic(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := h.Store.Get(ctx)
	if err != nil {
		h.Log.Error("settings: load public", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve the settings from the database", err)
		return
	}
	httperr.JSON(w, http.StatusOK, s.Public())
}

// ServeGet handles GET /api/settings (admin). Secrets are hidden.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := h.Store.Get(ctx)
	if err != nil {
		h.Log.Error("settings: load", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve the settings from the database", err)
		return
	}
	s.HideSecrets()
	httperr.JSON(w, http.StatusOK, s)
}

// ServeUpdate handles PUT /api/settings (admin).
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	var s models.Settings
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&s); err != nil {
		httperr.Write(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if err := validate(s); err != nil {
		httperr.Write(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	caller, _ := authz.CallerFrom(r)
	s.UpdatedByName = caller.Name

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "settings save")
	defer cancel()

	if err := h.Store.Save(ctx, s); err != nil {
		h.Log.Error("settings: save", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to persist the settings", err)
		return
	}
	h.AuditLog.SettingsUpdated(ctx, r, caller.UserID)

	saved, err := h.Store.Get(ctx)
	if err != nil {
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve the settings from the database", err)
		return
	}
	saved.HideSecrets()
	httperr.JSON(w, http.StatusOK, saved)
}

func validate(s models.Settings) error {
	switch s.AuthenticationMethod {
	case models.AuthenticationInternal, models.AuthenticationLDAP, models.AuthenticationOAuth:
	default:
		return errors.New("invalid authentication method")
	}
	if s.LogoURL != "" && !urlutil.IsValidAbsHTTPURL(s.LogoURL) {
		return errors.New("logo URL must be an absolute http(s) URL")
	}

	if s.AuthenticationMethod != models.AuthenticationOAuth {
		return nil
	}
	o := s.OAuthSettings
	if o.ClientID == "" {
		return errors.New("OAuth client ID is required")
	}
	for name, v := range map[string]string{
		"authorization URI": o.AuthorizationURI,
		"access token URI":  o.AccessTokenURI,
		"resource URI":      o.ResourceURI,
		"redirect URI":      o.RedirectURI,
		"logout URI":        o.LogoutURI,
	} {
		if !urlutil.IsValidAbsHTTPURL(v) {
			return errors.New("OAuth " + name + " must be an absolute http(s) URL")
		}
	}
	return nil
}
