// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	authapifeature "github.com/dalemusser/shipyard/internal/app/features/authapi"
	dashboardfeature "github.com/dalemusser/shipyard/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/shipyard/internal/app/features/errors"
	healthfeature "github.com/dalemusser/shipyard/internal/app/features/health"
	heartbeatfeature "github.com/dalemusser/shipyard/internal/app/features/heartbeat"
	loginfeature "github.com/dalemusser/shipyard/internal/app/features/login"
	logoutfeature "github.com/dalemusser/shipyard/internal/app/features/logout"
	settingsfeature "github.com/dalemusser/shipyard/internal/app/features/settings"
	statusfeature "github.com/dalemusser/shipyard/internal/app/features/status"
	"github.com/dalemusser/shipyard/internal/app/store/audit"
	backupstore "github.com/dalemusser/shipyard/internal/app/store/backups"
	endpointstore "github.com/dalemusser/shipyard/internal/app/store/endpoints"
	licensestore "github.com/dalemusser/shipyard/internal/app/store/licenses"
	"github.com/dalemusser/shipyard/internal/app/store/sessions"
	settingsstore "github.com/dalemusser/shipyard/internal/app/store/settings"
	userstore "github.com/dalemusser/shipyard/internal/app/store/users"
	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/app/system/blocklist"
	"github.com/dalemusser/shipyard/internal/app/system/kubecache"
	"github.com/dalemusser/shipyard/internal/app/system/logoutreason"
	"github.com/dalemusser/shipyard/internal/app/system/metrics"
	"github.com/dalemusser/shipyard/internal/app/system/ratelimit"
	"github.com/dalemusser/shipyard/internal/app/system/revoke"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/app/system/tokens"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// blocklistSweep is how often the in-memory blocklist drops expired tokens.
const blocklistSweep = 10 * time.Minute

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Shipyard initializes the template engine, builds the token and session
// services shared by login and logout, and mounts the browser pages and
// the JSON API:
//
//	/login, /auth/oauth, /logout, /dashboard   browser pages (CSRF protected)
//	/api/auth, /api/settings, /api/...          JSON API (session or bearer token)
//	/health, /metrics                          probes
//	/static/*                                  assets from ./public
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase

	// Reload the user on each request so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	/*── stores ────────────────────────────────────────────────────────────*/

	users := userstore.New(db)
	settings := settingsstore.New(db)
	sessStore := sessions.New(db)
	backups := backupstore.New(db)
	licenses := licensestore.New(db)
	endpoints := endpointstore.New(db)

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	/*── token services ────────────────────────────────────────────────────*/

	bl, err := openBlocklist(appCfg, deps)
	if err != nil {
		return nil, err
	}
	tok, err := tokens.NewService(appCfg.JWTSecret, appCfg.JWTExpiry, bl)
	if err != nil {
		logger.Error("token service init failed", zap.Error(err))
		return nil, err
	}

	kube := kubecache.New(appCfg.KubeTokenTTL)
	if deps.bg != nil {
		deps.bg.kube = kube
	}

	reasons := logoutreason.NewCodec(appCfg.LogoutReasonCookie, []byte(appCfg.SessionKey), secure, logger)

	/*── metrics ───────────────────────────────────────────────────────────*/

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	logoutMetrics := metrics.NewLogoutMetrics(reg)
	metrics.RegisterBlocklistSize(reg, bl, logger)

	/*── handlers ──────────────────────────────────────────────────────────*/

	errLog := errorsfeature.NewErrorLogger(logger)
	perSecond := float64(appCfg.AuthRatePerMinute) / 60

	rv := &revoke.Service{
		Sessions: sessionMgr,
		Tokens:   tok,
		Kube:     kube,
		Activity: sessStore,
		Log:      logger,
	}

	loginHandler := loginfeature.NewHandler(sessionMgr, errLog, users, settings, sessStore, reasons,
		ratelimit.New(perSecond, appCfg.AuthRateBurst), auditLog, logger)
	logoutHandler := logoutfeature.NewHandler(rv, settings, reasons, logoutMetrics, auditLog, timeouts.Logout(), logger)
	dashboardHandler := dashboardfeature.NewHandler(backups, licenses, endpoints, settings, logger)
	errorsHandler := errorsfeature.NewHandler()

	authHandler := authapifeature.NewHandler(users, settings, tok, rv, auditLog, logger)
	settingsHandler := settingsfeature.NewHandler(settings, auditLog, logger)
	statusHandler := statusfeature.NewHandler(backups, licenses, endpoints, kube, auditLog, logger)
	heartbeatHandler := heartbeatfeature.NewHandler(sessStore, sessionMgr, logger)

	checks := []healthfeature.Check{healthfeature.MongoCheck(deps.MongoClient)}
	if deps.Redis != nil {
		checks = append(checks, healthfeature.RedisCheck(deps.Redis))
	}
	healthHandler := healthfeature.NewHandler(logger, checks...)

	/*── router ────────────────────────────────────────────────────────────*/

	r := chi.NewRouter()
	r.Use(httpMetrics.Middleware)

	// Bearer tokens first, then the browser session; authz.CallerFrom
	// prefers the session user when both are present.
	r.Use(tok.Middleware)
	r.Use(sessionMgr.LoadSessionUser)

	// Probes
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler(reg))

	// Static assets (stylesheet, panel refresh script)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Browser pages
	r.Group(func(br chi.Router) {
		br.Use(csrfMiddleware([]byte(appCfg.CSRFKey), secure, errLog))

		br.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})

		br.Mount("/login", loginfeature.Routes(loginHandler))
		br.Mount("/auth/oauth", loginfeature.OAuthRoutes(loginHandler))
		br.Mount("/logout", logoutfeature.Routes(logoutHandler))
		br.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

		// Error pages
		br.Get("/forbidden", errorsHandler.Forbidden)
		br.Get("/unauthorized", errorsHandler.Unauthorized)
	})

	// JSON API
	r.Route("/api", func(api chi.Router) {
		api.Mount("/auth", authapifeature.Routes(authHandler, ratelimit.New(perSecond, appCfg.AuthRateBurst), logger))
		api.Mount("/settings", settingsfeature.Routes(settingsHandler))
		api.Mount("/heartbeat", heartbeatfeature.Routes(heartbeatHandler, sessionMgr))
		statusfeature.Mount(api, statusHandler)
	})

	return r, nil
}

// openBlocklist selects the revoked-token store named by blocklist_backend.
func openBlocklist(appCfg AppConfig, deps DBDeps) (blocklist.Blocklist, error) {
	switch appCfg.BlocklistBackend {
	case blocklist.BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("blocklist backend %q selected but Redis is not connected", blocklist.BackendRedis)
		}
		return blocklist.NewRedis(deps.Redis), nil
	case blocklist.BackendMemory, "":
		return blocklist.NewMemory(blocklistSweep), nil
	default:
		return nil, blocklist.ErrUnknownBackend(appCfg.BlocklistBackend)
	}
}

// csrfMiddleware protects browser form posts. Over plain HTTP (dev) each
// request is marked as plaintext so the same-origin check expects http://.
func csrfMiddleware(key []byte, secure bool, errLog *errorsfeature.ErrorLogger) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			errLog.LogForbidden(w, r, "csrf check failed", csrf.FailureReason(r),
				"Your form expired. Please reload the page and try again.", "")
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
