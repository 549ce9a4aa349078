// internal/app/features/logout/handler.go
package logout

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/app/system/logoutreason"
	"github.com/dalemusser/shipyard/internal/app/system/metrics"
	"github.com/dalemusser/shipyard/internal/app/system/notify"
	"github.com/dalemusser/shipyard/internal/app/system/revoke"
	"github.com/dalemusser/shipyard/internal/app/system/signout"
	"github.com/dalemusser/shipyard/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type Handler struct {
	Log      *zap.Logger
	Revoke   *revoke.Service
	Settings signout.SettingsSource
	Reasons  *logoutreason.Codec
	Metrics  *metrics.LogoutMetrics // optional
	AuditLog *auditlog.Logger       // optional
	Timeout  time.Duration

	// Observer, when set, sees every state of every attempt.
	Observer signout.Observer
}

func NewHandler(
	rv *revoke.Service,
	settings signout.SettingsSource,
	reasons *logoutreason.Codec,
	m *metrics.LogoutMetrics,
	audit *auditlog.Logger,
	timeout time.Duration,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:      logger,
		Revoke:   rv,
		Settings: settings,
		Reasons:  reasons,
		Metrics:  m,
		AuditLog: audit,
		Timeout:  timeout,
	}
}

type failureData struct {
	viewdata.BaseVM
	Notifications []notify.Notification
}

// responseNavigator remembers the redirect target. The redirect is written
// after the sequence returns so every cookie set during logout reaches the
// browser with it.
type responseNavigator struct {
	target string
}

func (n *responseNavigator) Redirect(uri string) { n.target = uri }

// ServeLogout handles GET /logout.
//
// Query parameters:
//   - error: optional reason shown on the next login page
//   - performApiLogout: "true" also revokes server-side state (default false)
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	req := h.parseRequest(r)

	rv := h.Revoke.For(w, r)
	caller, signedIn := rv.Caller()
	nav := &responseNavigator{}
	notes := notify.NewRecorder(h.Log)

	out := h.sequencer().Initiate(r.Context(), signout.Deps{
		Auth:     rv,
		Settings: h.Settings,
		Reasons:  h.Reasons.Writer(w),
		Notify:   notes,
		Navigate: nav,
	}, req)

	if h.Metrics != nil {
		h.Metrics.Record(req.PerformServerLogout, out)
	}
	if signedIn {
		if out.Err == nil {
			h.AuditLog.Logout(r.Context(), r, caller.UserID.Hex(), req.PerformServerLogout)
		} else {
			h.AuditLog.LogoutFailed(r.Context(), r, caller.UserID.Hex(), out.Err)
		}
	}

	if out.Err == nil && nav.target != "" {
		// HTMX handling: HX-Redirect forces a full client-side navigation.
		if r.Header.Get("HX-Request") != "" {
			w.Header().Set("HX-Redirect", nav.target)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, nav.target, http.StatusSeeOther)
		return
	}

	// Failure: the user stays on the logout view with the notification.
	data := failureData{
		BaseVM:        viewdata.NewBaseVM(r, nil, "Log out", "/"),
		Notifications: notes.All(),
	}
	templates.Render(w, r, "logout_failed", data)
}

func (h *Handler) parseRequest(r *http.Request) signout.Request {
	var req signout.Request
	if r.URL.Query().Has("error") {
		reason := query.Get(r, "error")
		req.ErrorReason = &reason
	}
	if raw := query.Get(r, "performApiLogout"); raw != "" {
		server, err := strconv.ParseBool(raw)
		if err != nil {
			h.Log.Debug("logout: ignoring malformed performApiLogout", zap.String("value", raw))
		}
		req.PerformServerLogout = server
	}
	return req
}

func (h *Handler) sequencer() *signout.Sequencer {
	var observers []signout.Observer
	if h.Metrics != nil {
		observers = append(observers, h.Metrics.NewStepTimer())
	}
	if h.Observer != nil {
		observers = append(observers, h.Observer)
	}
	return signout.New(
		signout.WithTimeout(h.Timeout),
		signout.WithLogger(h.Log),
		signout.WithObserver(signout.ObserverFunc(func(s signout.State) {
			for _, o := range observers {
				o.Observe(s)
			}
		})),
	)
}
