// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/app/system/blocklist"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/app/system/tokens"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Shipyard.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SHIPYARD_MONGO_URI, SHIPYARD_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "shipyard", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "shipyard-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "8h", Desc: "Browser session lifetime"},
	{Name: "csrf_key", Default: "dev-only-csrf-key-change-me-0123", Desc: "32-byte key for form CSRF tokens"},

	// API tokens
	{Name: "jwt_secret", Default: "dev-only-jwt-secret-change-me-0123456789", Desc: "HS256 signing secret for API tokens (32+ chars)"},
	{Name: "jwt_expiry", Default: "8h", Desc: "API token lifetime"},

	// Token blocklist
	{Name: "blocklist_backend", Default: blocklist.BackendMemory, Desc: "Revoked token store: 'memory' or 'redis'"},
	{Name: "redis_url", Default: "", Desc: "Redis URL for the redis blocklist backend (e.g., redis://localhost:6379/0)"},

	// Logout
	{Name: "logout_timeout", Default: "10s", Desc: "Upper bound for one logout sequence"},
	{Name: "logout_reason_cookie", Default: "shipyard-logout-reason", Desc: "Cookie carrying the logout reason to the login page"},

	// Kubernetes proxy tokens
	{Name: "kube_token_ttl", Default: "1h", Desc: "Lifetime of cached Kubernetes proxy tokens"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: auditlog.DestAll, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: auditlog.DestAll, Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Activity sessions
	{Name: "session_inactive_threshold", Default: "30m", Desc: "Close activity sessions idle for longer than this"},
	{Name: "session_cleanup_interval", Default: "5m", Desc: "How often idle activity sessions are closed"},

	// Rate limiting
	{Name: "auth_rate_limit", Default: 30, Desc: "Sign-in attempts allowed per client IP per minute"},
	{Name: "auth_rate_burst", Default: 10, Desc: "Sign-in burst allowance per client IP"},

	// Initial admin bootstrap
	{Name: "admin_username", Default: "", Desc: "Username of the admin created when no users exist"},
	{Name: "admin_password", Default: "", Desc: "Password of the initial admin"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL of the console"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SHIPYARD_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SHIPYARD", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 8*time.Hour),
		CSRFKey:          appValues.String("csrf_key"),

		JWTSecret: appValues.String("jwt_secret"),
		JWTExpiry: appValues.Duration("jwt_expiry", 8*time.Hour),

		BlocklistBackend: appValues.String("blocklist_backend"),
		RedisURL:         appValues.String("redis_url"),

		LogoutTimeout:      appValues.Duration("logout_timeout", timeouts.DefaultLogout),
		LogoutReasonCookie: appValues.String("logout_reason_cookie"),

		KubeTokenTTL: appValues.Duration("kube_token_ttl", time.Hour),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		SessionInactiveThreshold: appValues.Duration("session_inactive_threshold", 30*time.Minute),
		SessionCleanupInterval:   appValues.Duration("session_cleanup_interval", 5*time.Minute),

		AuthRatePerMinute: appValues.Int("auth_rate_limit"),
		AuthRateBurst:     appValues.Int("auth_rate_burst"),

		AdminUsername: appValues.String("admin_username"),
		AdminPassword: appValues.String("admin_password"),

		BaseURL: appValues.String("base_url"),
	}

	return coreCfg, appCfg, nil
}

// csrfKeyLen is the key size gorilla/csrf expects.
const csrfKeyLen = 32

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Shipyard validates connection strings and secrets early, before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if err := blocklist.ValidateBackend(appCfg.BlocklistBackend); err != nil {
		return err
	}
	if appCfg.BlocklistBackend == blocklist.BackendRedis && appCfg.RedisURL == "" {
		return errors.New("blocklist_backend=redis requires redis_url to be set")
	}

	if len(appCfg.JWTSecret) < tokens.MinSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", tokens.MinSecretLen)
	}
	if len(appCfg.CSRFKey) != csrfKeyLen {
		return fmt.Errorf("csrf_key must be exactly %d bytes", csrfKeyLen)
	}

	if !auditlog.ValidDest(appCfg.AuditLogAuth) {
		return fmt.Errorf("audit_log_auth: unknown destination %q", appCfg.AuditLogAuth)
	}
	if !auditlog.ValidDest(appCfg.AuditLogAdmin) {
		return fmt.Errorf("audit_log_admin: unknown destination %q", appCfg.AuditLogAdmin)
	}

	if appCfg.LogoutTimeout <= 0 {
		return errors.New("logout_timeout must be positive")
	}
	if appCfg.AuthRatePerMinute <= 0 {
		return errors.New("auth_rate_limit must be positive")
	}

	if (appCfg.AdminUsername == "") != (appCfg.AdminPassword == "") {
		return errors.New("admin_username and admin_password must be set together")
	}

	if appCfg.BaseURL != "" && !urlutil.IsValidAbsHTTPURL(appCfg.BaseURL) {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", appCfg.BaseURL)
	}

	return nil
}
