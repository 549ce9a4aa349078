package auditlog_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/shipyard/internal/app/store/audit"
	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	// These should all be no-ops, not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "password", "test")
	logger.Logout(ctx, req, primitive.NewObjectID().Hex(), true)
}

func TestLogger_LogOnly_NoStore(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.DestLog, Admin: auditlog.DestOff})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest("GET", "/logout", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	logger.Logout(ctx, req, primitive.NewObjectID().Hex(), true)
	logger.SettingsUpdated(ctx, req, primitive.NewObjectID())

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["event_type"] != audit.EventLogout {
		t.Errorf("event_type: got %v, want %q", fields["event_type"], audit.EventLogout)
	}
	if fields["ip"] != "203.0.113.9" {
		t.Errorf("ip: got %v", fields["ip"])
	}
	if fields["detail_server_logout"] != "true" {
		t.Errorf("detail_server_logout: got %v", fields["detail_server_logout"])
	}
}

func TestLogger_LogoutFailed_WarnLevel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.DestLog})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.LogoutFailed(ctx, httptest.NewRequest("GET", "/logout", nil), "", errors.New("settings unavailable"))

	entries := logs.FilterMessage("audit event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("level: got %v, want warn", entries[0].Level)
	}
	if entries[0].ContextMap()["failure_reason"] != "settings unavailable" {
		t.Errorf("failure_reason: got %v", entries[0].ContextMap()["failure_reason"])
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DestDB, Admin: auditlog.DestOff})

	userID := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/logout", nil)
	logger.Logout(ctx, req, userID.Hex(), false)
	logger.BackupStatusUpdated(ctx, req, userID, true)

	events, err := store.Query(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(events))
	}
	if events[0].EventType != audit.EventLogout || events[0].UserID == nil || *events[0].UserID != userID {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestLogger_Logout_InvalidID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.DestLog})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Logout(ctx, httptest.NewRequest("GET", "/", nil), "bogus", false)
	if logs.Len() != 0 {
		t.Errorf("expected no entries for invalid user id, got %d", logs.Len())
	}
}

func TestValidDest(t *testing.T) {
	for _, v := range []string{"all", "db", "log", "off"} {
		if !auditlog.ValidDest(v) {
			t.Errorf("ValidDest(%q): got false", v)
		}
	}
	if auditlog.ValidDest("everything") {
		t.Error("ValidDest(\"everything\"): got true")
	}
}
