package metrics

import (
	"errors"
	"time"

	"github.com/dalemusser/shipyard/internal/app/system/signout"
	"github.com/prometheus/client_golang/prometheus"
)

// LogoutMetrics tracks logout attempts and the time spent in each step.
type LogoutMetrics struct {
	Attempts     *prometheus.CounterVec
	Outcomes     *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
}

// NewLogoutMetrics creates and registers logout metrics on the given registry.
func NewLogoutMetrics(reg prometheus.Registerer) *LogoutMetrics {
	m := &LogoutMetrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logout",
			Name:      "attempts_total",
			Help:      "Total number of logout attempts, by server-side revocation flag.",
		}, []string{"server"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logout",
			Name:      "outcomes_total",
			Help:      "Total number of finished logout attempts, by result.",
		}, []string{"result"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "logout",
			Name:      "step_duration_seconds",
			Help:      "Time spent in each logout step.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"step"}),
	}

	reg.MustRegister(m.Attempts, m.Outcomes, m.StepDuration)
	return m
}

// Outcome result labels.
const (
	ResultRedirected        = "redirected"
	ResultRevokeFailed      = "revoke_failed"
	ResultSettingsFailed    = "settings_failed"
	ResultMalformedSettings = "malformed_settings"
	ResultTimeout           = "timeout"
	ResultError             = "error"
)

// Record counts a finished attempt.
func (m *LogoutMetrics) Record(server bool, out signout.Outcome) {
	label := "false"
	if server {
		label = "true"
	}
	m.Attempts.WithLabelValues(label).Inc()
	m.Outcomes.WithLabelValues(ResultFor(out)).Inc()
}

// ResultFor classifies an outcome.
func ResultFor(out signout.Outcome) string {
	if out.Err == nil {
		return ResultRedirected
	}
	if signout.IsTimeout(out.Err) {
		return ResultTimeout
	}
	if errors.Is(out.Err, signout.ErrMalformedSettings) {
		return ResultMalformedSettings
	}
	var te *signout.TransportError
	if errors.As(out.Err, &te) {
		switch te.Step {
		case signout.StepRevoke:
			return ResultRevokeFailed
		case signout.StepSettings:
			return ResultSettingsFailed
		}
	}
	return ResultError
}

// StepTimer is a per-attempt signout.Observer that measures how long each
// state lasts. It is not safe for concurrent use; create one per attempt.
type StepTimer struct {
	m       *LogoutMetrics
	current signout.State
	since   time.Time
	now     func() time.Time
}

// NewStepTimer returns an observer for one attempt.
func (m *LogoutMetrics) NewStepTimer() *StepTimer {
	return &StepTimer{m: m, now: time.Now}
}

// Observe implements signout.Observer.
func (t *StepTimer) Observe(s signout.State) {
	now := t.now()
	switch t.current {
	case signout.StateRevoking, signout.StateFetchingSettings, signout.StateRedirecting:
		t.m.StepDuration.WithLabelValues(string(t.current)).Observe(now.Sub(t.since).Seconds())
	}
	t.current = s
	t.since = now
}
