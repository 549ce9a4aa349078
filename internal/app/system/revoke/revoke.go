// Package revoke ends the authenticated state of one request's caller.
package revoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/store/sessions"
	"github.com/dalemusser/shipyard/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SessionDestroyer deletes the browser session cookie.
type SessionDestroyer interface {
	Destroy(w http.ResponseWriter, r *http.Request) error
}

// TokenRevoker blocklists an API token.
type TokenRevoker interface {
	Revoke(ctx context.Context, raw string) error
}

// KubeTokens holds per-user Kubernetes proxy tokens.
type KubeTokens interface {
	RemoveUser(userID string)
}

// ActivitySessions records the end of an activity session.
type ActivitySessions interface {
	Close(ctx context.Context, sessionID primitive.ObjectID, reason string) error
}

// Service holds the stores shared by every logout.
type Service struct {
	Sessions SessionDestroyer
	Tokens   TokenRevoker
	Kube     KubeTokens
	Activity ActivitySessions // optional
	Log      *zap.Logger
}

// For binds the service to one request. The result implements
// signout.Authenticator.
func (s *Service) For(w http.ResponseWriter, r *http.Request) *Authenticator {
	caller, ok := authz.CallerFrom(r)
	return &Authenticator{svc: s, w: w, r: r, caller: caller, signedIn: ok}
}

// Authenticator revokes the caller of a single request.
type Authenticator struct {
	svc      *Service
	w        http.ResponseWriter
	r        *http.Request
	caller   authz.Caller
	signedIn bool
}

// Caller is the principal being signed out, if any.
func (a *Authenticator) Caller() (authz.Caller, bool) { return a.caller, a.signedIn }

// Logout clears the session cookie and the caller's Kubernetes tokens. With
// server set it also blocklists the caller's API token and closes the
// activity session.
func (a *Authenticator) Logout(ctx context.Context, server bool) error {
	if err := a.svc.Sessions.Destroy(a.w, a.r); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if !a.signedIn {
		return nil
	}
	a.svc.Kube.RemoveUser(a.caller.UserID.Hex())

	if !server {
		return nil
	}

	if a.caller.Token != "" {
		if err := a.svc.Tokens.Revoke(ctx, a.caller.Token); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}

	if a.svc.Activity == nil || a.caller.ActivitySessionID == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(a.caller.ActivitySessionID)
	if err != nil {
		a.svc.Log.Warn("logout: malformed activity session id",
			zap.String("activity_session_id", a.caller.ActivitySessionID))
		return nil
	}
	if err := a.svc.Activity.Close(ctx, id, sessions.EndLogout); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return fmt.Errorf("close activity session: %w", err)
	}
	return nil
}
