package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/shipyard/internal/app/features/health"
	"github.com/dalemusser/shipyard/internal/testutil"
	"go.uber.org/zap"
)

type response struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	// Set up a test database to get a connected client
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(zap.NewNop(), health.MongoCheck(db.Client()))

	rec, resp := serve(t, handler)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.Checks["database"] != "connected" {
		t.Errorf("database: got %q, want %q", resp.Checks["database"], "connected")
	}
}

func TestServe_FailingCheck(t *testing.T) {
	ok := health.Check{Name: "database", Ping: func(context.Context) error { return nil }}
	down := health.Check{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }}

	rec, resp := serve(t, health.NewHandler(zap.NewNop(), ok, down))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if resp.Status != "error" {
		t.Errorf("status: got %q, want %q", resp.Status, "error")
	}
	if resp.Checks["database"] != "connected" || resp.Checks["redis"] != "disconnected" {
		t.Errorf("checks: got %v", resp.Checks)
	}
	if resp.Message != "redis unavailable" || resp.Error != "connection refused" {
		t.Errorf("message/error: got %q / %q", resp.Message, resp.Error)
	}
}

func TestServe_NoChecks(t *testing.T) {
	rec, resp := serve(t, health.NewHandler(zap.NewNop()))

	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("got %d %q, want 200 ok", rec.Code, resp.Status)
	}
}
