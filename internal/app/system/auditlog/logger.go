// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/shipyard/internal/app/store/audit"
	"github.com/dalemusser/shipyard/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, token revocation).
	Auth string
	// Admin controls logging for admin changes (settings, backup status).
	Admin string
}

// ValidDest reports whether v is a known destination.
func ValidDest(v string) bool {
	switch v {
	case DestAll, DestDB, DestLog, DestOff:
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via audit.Store) and/or structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil when no category logs to "db".
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// NewNopLogger returns a Logger that records nothing, for tests.
func NewNopLogger() *Logger {
	return New(nil, zap.NewNop(), Config{Auth: DestOff, Admin: DestOff})
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = DestAll
	}

	if setting == DestOff {
		return
	}

	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}

	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method, username string) {
	e := authEvent(r, audit.EventLoginSuccess, &userID, true)
	e.Details = map[string]string{"method": method, "username": username}
	l.Log(ctx, e)
}

// LoginFailed logs a failed login. userID is nil when the user is unknown.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, username string) {
	e := authEvent(r, eventType, userID, false)
	e.FailureReason = eventType
	e.Details = map[string]string{"username": username}
	l.Log(ctx, e)
}

// Logout logs a completed session revocation.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string, server bool) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return
	}
	e := authEvent(r, audit.EventLogout, &oid, true)
	e.Details = map[string]string{"server_logout": strconv.FormatBool(server)}
	l.Log(ctx, e)
}

// LogoutFailed logs a logout attempt that reported a failure to the user.
// userID may be empty when the caller was anonymous.
func (l *Logger) LogoutFailed(ctx context.Context, r *http.Request, userID string, cause error) {
	var uid *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		uid = &oid
	}
	e := authEvent(r, audit.EventLogoutFailed, uid, false)
	e.FailureReason = fmt.Sprint(cause)
	l.Log(ctx, e)
}

// TokenRevoked logs an API token put on the blocklist.
func (l *Logger) TokenRevoked(ctx context.Context, r *http.Request, userID *primitive.ObjectID, source string) {
	e := authEvent(r, audit.EventTokenRevoked, userID, true)
	e.Details = map[string]string{"source": source}
	l.Log(ctx, e)
}

// OAuthBackchannelLogout logs an identity-provider initiated logout.
func (l *Logger) OAuthBackchannelLogout(ctx context.Context, r *http.Request) {
	l.Log(ctx, authEvent(r, audit.EventOAuthBackchannelLogout, nil, true))
}

// --- Admin Events ---

// SettingsUpdated logs a settings change by actorID.
func (l *Logger) SettingsUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventSettingsUpdated,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// BackupStatusUpdated logs a reported backup run.
func (l *Logger) BackupStatusUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, failed bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventBackupStatusUpdated,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"failed": strconv.FormatBool(failed)},
	})
}
