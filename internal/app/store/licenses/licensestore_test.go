package licensestore_test

import (
	"testing"

	licensestore "github.com/dalemusser/shipyard/internal/app/store/licenses"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/dalemusser/shipyard/internal/testutil"
)

func TestStore_Get_None(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := licensestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	info, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil license, got %+v", info)
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := licensestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	want := models.LicenseInfo{Company: "Acme", Nodes: 10, Type: models.LicenseSubscription, Valid: true}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Company != "Acme" || got.Nodes != 10 || got.Type != models.LicenseSubscription {
		t.Errorf("unexpected license: %+v", got)
	}
}
