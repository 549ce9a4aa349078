package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/shipyard/internal/app/store/audit"
	"github.com/dalemusser/shipyard/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	for i, typ := range []string{audit.EventLoginSuccess, audit.EventLogout, audit.EventLogoutFailed} {
		err := store.Log(ctx, audit.Event{
			Category:  audit.CategoryAuth,
			EventType: typ,
			UserID:    &userID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Success:   typ != audit.EventLogoutFailed,
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{EventType: audit.EventLogout})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].EventType != audit.EventLogout {
		t.Errorf("EventType filter: got %+v", got)
	}

	start := base.Add(30 * time.Second)
	got, err = store.Query(ctx, audit.QueryFilter{UserID: &userID, StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("StartTime filter: got %d events, want 2", len(got))
	}
	if got[0].EventType != audit.EventLogoutFailed {
		t.Errorf("expected newest first, got %q", got[0].EventType)
	}
}
