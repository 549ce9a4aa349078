// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// The struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: shipyard-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Browser session lifetime
	CSRFKey       string        // 32-byte key for form CSRF tokens

	// API tokens
	JWTSecret string
	JWTExpiry time.Duration

	// Token blocklist
	BlocklistBackend string // "memory" or "redis"
	RedisURL         string // required for the redis backend

	// Logout
	LogoutTimeout      time.Duration // upper bound for one logout sequence
	LogoutReasonCookie string        // cookie carrying the reason to the login page

	// Kubernetes proxy tokens
	KubeTokenTTL time.Duration

	// Audit logging
	AuditLogAuth  string // all | db | log | off
	AuditLogAdmin string

	// Activity sessions
	SessionInactiveThreshold time.Duration
	SessionCleanupInterval   time.Duration

	// Authentication rate limiting (per client IP)
	AuthRatePerMinute int
	AuthRateBurst     int

	// Initial admin, created on an empty users collection
	AdminUsername string
	AdminPassword string

	// Public base URL of the console
	BaseURL string
}
