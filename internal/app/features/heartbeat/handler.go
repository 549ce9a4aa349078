// internal/app/features/heartbeat/handler.go
package heartbeat

import (
	"context"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/store/sessions"
	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/app/system/ratelimit"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ActivitySessions keeps activity sessions alive. *sessions.Store implements it.
type ActivitySessions interface {
	Touch(ctx context.Context, sessionID primitive.ObjectID) (bool, error)
	Create(ctx context.Context, userID primitive.ObjectID, ip, userAgent, createdBy string) (sessions.Session, error)
}

// Handler handles heartbeat requests for activity tracking.
type Handler struct {
	Sessions   ActivitySessions
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler creates a new heartbeat handler.
func NewHandler(sessStore ActivitySessions, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions:   sessStore,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

// ServeHeartbeat handles POST /api/heartbeat.
// Updates the LastActiveAt timestamp for the user's current session.
// If the session was closed due to inactivity, opens a new one.
// Failures are logged; the response is always 200.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	userOID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if oid, err := primitive.ObjectIDFromHex(u.ActivitySessionID); err == nil {
		updated, err := h.Sessions.Touch(ctx, oid)
		if err != nil {
			h.Log.Warn("failed to update session last_active_at",
				zap.Error(err),
				zap.String("session_id", u.ActivitySessionID))
			w.WriteHeader(http.StatusOK)
			return
		}
		if updated {
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	newSess, err := h.Sessions.Create(ctx, userOID, ratelimit.ClientIP(r), r.UserAgent(), sessions.CreatedByHeartbeat)
	if err != nil {
		h.Log.Warn("failed to create new activity session after timeout",
			zap.Error(err),
			zap.String("user_id", u.ID))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.SessionMgr.SetActivitySession(w, r, newSess.ID.Hex()); err != nil {
		h.Log.Warn("failed to save session with new activity_session_id", zap.Error(err))
	}

	h.Log.Info("created new activity session after inactivity timeout",
		zap.String("user_id", u.ID),
		zap.String("new_session_id", newSess.ID.Hex()))

	w.WriteHeader(http.StatusOK)
}
