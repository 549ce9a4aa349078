// Package signout ends an authenticated console session.
//
// A Sequencer runs the fixed logout sequence: revoke the session, fetch the
// public settings, navigate to the identity provider's logout URI. The
// logout reason is always persisted on the way out, and any failure is
// reported to the user instead of being returned to the caller.
package signout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.uber.org/zap"
)

// Notification text shown when a logout attempt fails.
const (
	FailureTitle   = "Failure"
	FailureMessage = "An error occurred during logout"
)

// DefaultTimeout bounds a whole logout attempt when none is configured.
const DefaultTimeout = 10 * time.Second

// Request is one logout attempt. ErrorReason is nil when the user signed out
// on purpose, and set when the session ended because of an error.
type Request struct {
	ErrorReason         *string
	PerformServerLogout bool
}

// Reason returns the reason text, or "" when there is none.
func (r Request) Reason() string {
	if r.ErrorReason == nil {
		return ""
	}
	return *r.ErrorReason
}

// Outcome is either Redirected (RedirectURI set, Err nil) or Failed (Err set).
type Outcome struct {
	RedirectURI string
	Err         error
}

// Redirected reports whether navigation was issued.
func (o Outcome) Redirected() bool { return o.Err == nil && o.RedirectURI != "" }

// Authenticator revokes the current session. When server is false only the
// client-side session state is cleared.
type Authenticator interface {
	Logout(ctx context.Context, server bool) error
}

// SettingsSource returns the current public settings. It must not cache.
type SettingsSource interface {
	PublicSettings(ctx context.Context) (models.PublicSettings, error)
}

// ReasonStore persists the logout reason for the next view.
type ReasonStore interface {
	StoreLogoutReason(reason *string)
}

// Notifier is the user-visible notification surface.
type Notifier interface {
	Error(title string, err error, message string)
}

// Navigator performs a full-page redirect.
type Navigator interface {
	Redirect(uri string)
}

// Deps are the collaborators of one logout attempt.
type Deps struct {
	Auth     Authenticator
	Settings SettingsSource
	Reasons  ReasonStore
	Notify   Notifier
	Navigate Navigator
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithTimeout bounds each attempt. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Sequencer) { s.timeout = d }
}

// WithObserver registers a state observer.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sequencer) { s.log = l }
}

// Sequencer runs logout attempts. It holds no per-attempt state, so one
// Sequencer can serve every request.
type Sequencer struct {
	timeout  time.Duration
	observer Observer
	log      *zap.Logger
}

// New builds a Sequencer.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate runs one logout attempt against deps. It never returns an error
// and never panics on collaborator failure; the outcome is informational.
func (s *Sequencer) Initiate(ctx context.Context, deps Deps, req Request) (out Outcome) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.enter(StateIdle)

	// A panic in Navigator.Redirect is reported like any other failure:
	// the redirect never happened, so the user is still on this view.
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Err: fmt.Errorf("logout panicked: %v", p)}
		}
		if out.Err != nil {
			s.log.Warn("logout failed",
				zap.Error(out.Err),
				zap.Bool("server_logout", req.PerformServerLogout),
				zap.Duration("elapsed", time.Since(start)))
			deps.Notify.Error(FailureTitle, out.Err, FailureMessage)
			s.enter(StateErrorReported)
		}
	}()

	defer func() {
		deps.Reasons.StoreLogoutReason(req.ErrorReason)
		s.enter(StateCleanupWritten)
	}()

	uri, err := s.run(ctx, deps, req)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{RedirectURI: uri}
}

func (s *Sequencer) run(ctx context.Context, deps Deps, req Request) (string, error) {
	s.enter(StateRevoking)
	if err := deps.Auth.Logout(ctx, req.PerformServerLogout); err != nil {
		return "", &TransportError{Step: StepRevoke, Err: err}
	}

	s.enter(StateFetchingSettings)
	settings, err := deps.Settings.PublicSettings(ctx)
	if err != nil {
		return "", &TransportError{Step: StepSettings, Err: err}
	}
	if settings.OAuthLogoutURI == "" {
		return "", ErrMalformedSettings
	}
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Step: StepSettings, Err: err}
	}

	s.enter(StateRedirecting)
	deps.Navigate.Redirect(settings.OAuthLogoutURI)
	return settings.OAuthLogoutURI, nil
}

func (s *Sequencer) enter(st State) {
	if s.observer != nil {
		s.observer.Observe(st)
	}
}

// IsTimeout reports whether err came from the attempt's deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
