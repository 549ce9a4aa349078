package logout_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/shipyard/internal/app/features/logout"
	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/app/system/kubecache"
	"github.com/dalemusser/shipyard/internal/app/system/logoutreason"
	"github.com/dalemusser/shipyard/internal/app/system/metrics"
	"github.com/dalemusser/shipyard/internal/app/system/revoke"
	"github.com/dalemusser/shipyard/internal/app/system/signout"
	"github.com/dalemusser/shipyard/internal/app/system/tokens"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	sessionCookie = "test-session"
	reasonCookie  = "test-reason"
	idpLogout     = "https://idp.example.com/logout"
)

type stubSettings struct {
	pub models.PublicSettings
	err error
}

func (s *stubSettings) PublicSettings(context.Context) (models.PublicSettings, error) {
	return s.pub, s.err
}

type fakeRevoker struct{ revoked []string }

func (f *fakeRevoker) Revoke(_ context.Context, raw string) error {
	f.revoked = append(f.revoked, raw)
	return nil
}

type harness struct {
	h        *logout.Handler
	settings *stubSettings
	reasons  *logoutreason.Codec
	tokens   *fakeRevoker
	kube     *kubecache.Cache
	metrics  *metrics.LogoutMetrics
	states   []signout.State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", sessionCookie, "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	kube := kubecache.New(time.Hour)
	t.Cleanup(kube.Stop)

	hs := &harness{
		settings: &stubSettings{pub: models.PublicSettings{OAuthLogoutURI: idpLogout}},
		reasons:  logoutreason.NewCodec(reasonCookie, []byte("test-reason-hash-key-0123456789ab"), false, logger),
		tokens:   &fakeRevoker{},
		kube:     kube,
		metrics:  metrics.NewLogoutMetrics(prometheus.NewRegistry()),
	}
	rv := &revoke.Service{Sessions: sessionMgr, Tokens: hs.tokens, Kube: kube, Log: logger}

	// Pass nil for the audit logger in tests (its methods are nil-safe).
	hs.h = logout.NewHandler(rv, hs.settings, hs.reasons, hs.metrics, nil, time.Second, logger)
	hs.h.Observer = signout.ObserverFunc(func(s signout.State) { hs.states = append(hs.states, s) })
	return hs
}

func (hs *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		// The failure page may panic without initialized templates.
		defer func() { _ = recover() }()
		hs.h.ServeLogout(rec, req)
	}()
	return rec
}

// reasonFrom decodes the logout reason cookie set on rec.
func (hs *harness) reasonFrom(t *testing.T, rec *httptest.ResponseRecorder) (string, bool) {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == reasonCookie {
			req := httptest.NewRequest(http.MethodGet, "/login", nil)
			req.AddCookie(c)
			return hs.reasons.Read(req), true
		}
	}
	return "", false
}

func signedIn(req *http.Request, userID string) *http.Request {
	return auth.WithTestUser(req, &auth.SessionUser{ID: userID, Name: "Test User", Role: "standard"})
}

func TestServeLogout_RedirectsToIdentityProvider(t *testing.T) {
	hs := newHarness(t)

	rec := hs.serve(httptest.NewRequest(http.MethodGet, "/logout", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != idpLogout {
		t.Errorf("Location: got %q, want %q", loc, idpLogout)
	}
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	hs := newHarness(t)

	rec := hs.serve(httptest.NewRequest(http.MethodGet, "/logout", nil))

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge: got %d, want -1 (delete)", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}

func TestServeLogout_HTMX_ReturnsHXRedirect(t *testing.T) {
	hs := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := hs.serve(req)

	if got := rec.Header().Get("HX-Redirect"); got != idpLogout {
		t.Errorf("HX-Redirect: got %q, want %q", got, idpLogout)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for HTMX, got %d", http.StatusOK, rec.Code)
	}
}

func TestServeLogout_StoresErrorReason(t *testing.T) {
	hs := newHarness(t)

	rec := hs.serve(httptest.NewRequest(http.MethodGet, "/logout?error=Session+expired", nil))

	reason, ok := hs.reasonFrom(t, rec)
	if !ok {
		t.Fatal("expected logout reason cookie")
	}
	if reason != "Session expired" {
		t.Errorf("reason: got %q, want %q", reason, "Session expired")
	}
}

func TestServeLogout_OversizedReasonReplacesEarlierReason(t *testing.T) {
	hs := newHarness(t)

	first := hs.serve(httptest.NewRequest(http.MethodGet, "/logout?error=old+reason", nil))

	long := strings.Repeat("x", 5000)
	req := httptest.NewRequest(http.MethodGet, "/logout?error="+url.QueryEscape(long), nil)
	for _, c := range first.Result().Cookies() {
		if c.Name == reasonCookie {
			req.AddCookie(c)
		}
	}
	rec := hs.serve(req)

	reason, ok := hs.reasonFrom(t, rec)
	if !ok {
		t.Fatal("expected the second logout to write the reason cookie")
	}
	if want := long[:logoutreason.MaxReasonLen]; reason != want {
		t.Errorf("reason: got %d chars (%.10q...), want %d x's", len(reason), reason, len(want))
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
}

func TestServeLogout_NoErrorStoresEmptyReason(t *testing.T) {
	hs := newHarness(t)

	rec := hs.serve(httptest.NewRequest(http.MethodGet, "/logout", nil))

	reason, ok := hs.reasonFrom(t, rec)
	if !ok {
		t.Fatal("the reason cookie is written on every logout")
	}
	if reason != "" {
		t.Errorf("reason: got %q, want empty", reason)
	}
}

func TestServeLogout_ServerLogoutRevokesToken(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		revoke bool
	}{
		{"default is client only", "", false},
		{"explicit false", "?performApiLogout=false", false},
		{"true", "?performApiLogout=true", true},
		{"malformed is false", "?performApiLogout=maybe", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hs := newHarness(t)
			uid := primitive.NewObjectID().Hex()
			hs.kube.GetOrCreate(uid)

			req := signedIn(httptest.NewRequest(http.MethodGet, "/logout"+tc.query, nil), uid)
			claims := &tokens.Claims{Username: "Test User", Role: "standard"}
			claims.Subject = uid
			req = req.WithContext(tokens.WithClaims(req.Context(), claims, "raw-token"))

			rec := hs.serve(req)

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
			}
			if got := len(hs.tokens.revoked) == 1; got != tc.revoke {
				t.Errorf("token revoked: got %v, want %v", got, tc.revoke)
			}
			if hs.kube.Has(uid) {
				t.Error("kubernetes tokens should be purged on every logout")
			}
		})
	}
}

func TestServeLogout_SettingsFailureStaysOnPage(t *testing.T) {
	hs := newHarness(t)
	hs.settings.err = errors.New("connection refused")

	rec := hs.serve(httptest.NewRequest(http.MethodGet, "/logout?error=expired", nil))

	if rec.Code == http.StatusSeeOther || rec.Header().Get("Location") != "" {
		t.Errorf("failed logout must not redirect (status %d, Location %q)", rec.Code, rec.Header().Get("Location"))
	}
	if reason, ok := hs.reasonFrom(t, rec); !ok || reason != "expired" {
		t.Errorf("reason must be stored on failure too: got %q (found %v)", reason, ok)
	}
	if got := testutil.ToFloat64(hs.metrics.Outcomes.WithLabelValues(metrics.ResultSettingsFailed)); got != 1 {
		t.Errorf("settings_failed outcomes: got %v, want 1", got)
	}
	want := []signout.State{
		signout.StateIdle,
		signout.StateRevoking,
		signout.StateFetchingSettings,
		signout.StateCleanupWritten,
		signout.StateErrorReported,
	}
	assertStates(t, hs.states, want)
}

func TestServeLogout_MalformedSettings(t *testing.T) {
	hs := newHarness(t)
	hs.settings.pub = models.PublicSettings{}

	rec := hs.serve(httptest.NewRequest(http.MethodGet, "/logout", nil))

	if rec.Header().Get("Location") != "" {
		t.Errorf("unexpected redirect to %q", rec.Header().Get("Location"))
	}
	if got := testutil.ToFloat64(hs.metrics.Outcomes.WithLabelValues(metrics.ResultMalformedSettings)); got != 1 {
		t.Errorf("malformed_settings outcomes: got %v, want 1", got)
	}
}

func TestServeLogout_StateSequenceOnSuccess(t *testing.T) {
	hs := newHarness(t)

	hs.serve(httptest.NewRequest(http.MethodGet, "/logout", nil))

	want := []signout.State{
		signout.StateIdle,
		signout.StateRevoking,
		signout.StateFetchingSettings,
		signout.StateRedirecting,
		signout.StateCleanupWritten,
	}
	assertStates(t, hs.states, want)
}

func assertStates(t *testing.T, got, want []signout.State) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("states: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states: got %v, want %v", got, want)
		}
	}
}
