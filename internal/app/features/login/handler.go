// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/shipyard/internal/app/features/errors"
	"github.com/dalemusser/shipyard/internal/app/store/audit"
	"github.com/dalemusser/shipyard/internal/app/store/sessions"
	userstore "github.com/dalemusser/shipyard/internal/app/store/users"
	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/shipyard/internal/app/system/logoutreason"
	"github.com/dalemusser/shipyard/internal/app/system/ratelimit"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/app/system/viewdata"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserStore looks up and provisions console users. *userstore.Store implements it.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetOrCreateOAuthUser(ctx context.Context, username string, autoCreate bool) (*models.User, error)
}

// SettingsStore is the console settings source. *settingsstore.Store implements it.
type SettingsStore interface {
	Get(ctx context.Context) (models.Settings, error)
	PublicSettings(ctx context.Context) (models.PublicSettings, error)
}

// ActivitySessions opens activity sessions. *sessions.Store implements it.
type ActivitySessions interface {
	Create(ctx context.Context, userID primitive.ObjectID, ip, userAgent, createdBy string) (sessions.Session, error)
}

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Users      UserStore
	Settings   SettingsStore
	Sessions   ActivitySessions    // optional
	Reasons    *logoutreason.Codec // optional
	Limiter    *ratelimit.Limiter  // optional
	AuditLog   *auditlog.Logger
}

func NewHandler(
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	users UserStore,
	settings SettingsStore,
	sessStore ActivitySessions,
	reasons *logoutreason.Codec,
	limiter *ratelimit.Limiter,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Users:      users,
		Settings:   settings,
		Sessions:   sessStore,
		Reasons:    reasons,
		Limiter:    limiter,
		AuditLog:   audit,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	Error        string
	LogoutReason string // why the previous session ended, if known
	Username     string
	ReturnURL    string
	OAuthEnabled bool
}

// errorMessages maps the ?error= codes set by the OAuth callback.
var errorMessages = map[string]string{
	"invalid_state":    "Your sign-in attempt expired. Please try again.",
	"oauth_denied":     "Sign-in was cancelled at the identity provider.",
	"oauth_failed":     "Unable to sign in with the identity provider.",
	"oauth_disabled":   "OAuth sign-in is not enabled.",
	"unknown_user":     "No console account exists for that identity.",
	"account_disabled": "Your account is currently disabled. Please contact an administrator.",
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	var reason string
	if h.Reasons != nil {
		reason = htmlsanitize.PlainText(h.Reasons.Consume(w, r))
	}

	h.render(w, r, loginFormData{
		Error:        errorMessages[query.Get(r, "error")],
		LogoutReason: reason,
		ReturnURL:    query.Get(r, "return"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.renderFormWithError(w, r, "Please enter your username and password.", username)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	limitKey := ratelimit.ClientIP(r)
	if h.Limiter != nil && !h.Limiter.Allow(limitKey) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, nil, username)
		h.renderFormWithError(w, r, "Too many sign-in attempts. Please wait a moment and try again.", username)
		return
	}

	u, err := h.Users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, username)
		h.renderFormWithError(w, r, "Invalid username or password.", username)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "DB find user", err, "A server error occurred.", "/login")
		return
	}

	if u.Status == userstore.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &u.ID, username)
		h.renderFormWithError(w, r, errorMessages["account_disabled"], username)
		return
	}

	if !userstore.VerifyPassword(u, password) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, username)
		h.renderFormWithError(w, r, "Invalid username or password.", username)
		return
	}

	/*── under OAuth only admins keep password access ──────────────────────*/

	settings, err := h.Settings.Get(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load settings", err, "A server error occurred.", "/login")
		return
	}
	if settings.AuthenticationMethod == models.AuthenticationOAuth && !u.IsAdmin() {
		h.renderFormWithError(w, r, "Please sign in with your identity provider.", username)
		return
	}

	if h.Limiter != nil {
		h.Limiter.Reset(limitKey)
	}

	if err := h.signIn(w, r, u, sessions.CreatedByLogin); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("username", username))
		h.renderFormWithError(w, r, "Unable to create session. Please try again.", username)
		return
	}

	ret := strings.TrimSpace(r.FormValue("return"))
	http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/dashboard"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// signIn opens an activity session, then writes the authenticated cookie.
// Activity tracking failures are logged and do not block the login.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u *models.User, createdBy string) error {
	su := auth.SessionUser{
		ID:   u.ID.Hex(),
		Name: u.Username,
		Role: u.Role,
	}

	if h.Sessions != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		activity, err := h.Sessions.Create(ctx, u.ID, ratelimit.ClientIP(r), r.UserAgent(), createdBy)
		if err != nil {
			h.Log.Warn("failed to create activity session", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		} else {
			su.ActivitySessionID = activity.ID.Hex()
		}
	}

	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		return err
	}

	h.AuditLog.LoginSuccess(r.Context(), r, u.ID, createdBy, u.Username)
	return nil
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, msg, username string) {
	ret := strings.TrimSpace(r.FormValue("return"))
	if ret == "" {
		ret = query.Get(r, "return")
	}
	h.render(w, r, loginFormData{
		Error:     msg,
		Username:  username,
		ReturnURL: ret,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data loginFormData) {
	data.BaseVM = viewdata.NewBaseVM(r, h.Settings, "Sign in", "/")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if pub, err := h.Settings.PublicSettings(ctx); err == nil {
		data.OAuthEnabled = pub.OAuthLoginURI != ""
	}

	templates.Render(w, r, "login", data)
}
