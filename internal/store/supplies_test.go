package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/surmed/surmed/internal/db"
	"github.com/surmed/surmed/internal/model"
)

func newTestUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	user, err := CreateUser(context.Background(), database, username, "hash", role)
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

func newTestSupply(t *testing.T, database *sql.DB, submitter int64, mutate func(*model.Supply)) *model.Supply {
	t.Helper()

	expiry := time.Now().AddDate(0, 0, 180)
	s := &model.Supply{
		ItemName:          "Nitrile Gloves",
		Category:          model.CategoryPPE,
		Quantity:          50,
		Unit:              "boxes",
		Description:       "Size M",
		ExpiryDate:        &expiry,
		BatchNumber:       "LOT-100",
		PackagingStatus:   model.PackagingSealed,
		StorageConditions: model.StorageControlled,
		SubmittedBy:       submitter,
	}
	if mutate != nil {
		mutate(s)
	}

	created, err := CreateSupply(context.Background(), database, s)
	if err != nil {
		t.Fatalf("creating test supply: %v", err)
	}
	return created
}

func TestCreateAndGetSupply(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "submitter", model.RoleSubmitter)

	supply := newTestSupply(t, database, user.ID, nil)

	if !strings.HasPrefix(supply.SupplyRef, "SUP-") {
		t.Errorf("unexpected supply ref: %s", supply.SupplyRef)
	}
	if supply.CustodyHash == "" {
		t.Error("expected custody hash to be set on creation")
	}
	if supply.DecisionStatus != model.StatusPendingInitial {
		t.Errorf("expected new supply to be %s, got %s", model.StatusPendingInitial, supply.DecisionStatus)
	}
	if supply.SubmitterName != "submitter" {
		t.Errorf("expected joined submitter name, got %q", supply.SubmitterName)
	}
	if supply.ExpiryDate == nil {
		t.Fatal("expected expiry date to round-trip")
	}

	byRef, err := GetSupplyByRef(ctx, database, supply.SupplyRef)
	if err != nil {
		t.Fatalf("GetSupplyByRef: %v", err)
	}
	if byRef == nil || byRef.ID != supply.ID {
		t.Error("lookup by ref should find the same supply")
	}

	missing, err := GetSupply(ctx, database, 9999)
	if err != nil {
		t.Fatalf("GetSupply missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing supply")
	}
}

func TestSupplyExpiryDateRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	user := newTestUser(t, database, "submitter", model.RoleSubmitter)

	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	supply := newTestSupply(t, database, user.ID, func(s *model.Supply) {
		s.ExpiryDate = &expiry
	})

	if supply.ExpiryDate == nil {
		t.Fatal("expected expiry date")
	}
	if got := supply.ExpiryDate.Format("2006-01-02"); got != "2026-06-01" {
		t.Errorf("expected 2026-06-01, got %s", got)
	}
}

func TestListSuppliesFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "submitter", model.RoleSubmitter)

	newTestSupply(t, database, user.ID, nil)
	gowns := newTestSupply(t, database, user.ID, func(s *model.Supply) {
		s.ItemName = "Surgical Gowns"
		s.Category = model.CategorySurgical
	})

	all, err := ListSupplies(ctx, database, SupplyFilter{})
	if err != nil {
		t.Fatalf("ListSupplies: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 supplies, got %d", len(all))
	}

	surgical, err := ListSupplies(ctx, database, SupplyFilter{Category: model.CategorySurgical})
	if err != nil {
		t.Fatalf("ListSupplies category: %v", err)
	}
	if len(surgical) != 1 || surgical[0].ID != gowns.ID {
		t.Errorf("category filter returned %+v", surgical)
	}

	found, err := ListSupplies(ctx, database, SupplyFilter{Search: "gown"})
	if err != nil {
		t.Fatalf("ListSupplies search: %v", err)
	}
	if len(found) != 1 || found[0].ID != gowns.ID {
		t.Errorf("search filter returned %+v", found)
	}

	pending, err := ListSupplies(ctx, database, SupplyFilter{Status: model.StatusPendingInitial})
	if err != nil {
		t.Fatalf("ListSupplies status: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 pending supplies, got %d", len(pending))
	}
}

func TestSetSupplyStatusAndCounts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "submitter", model.RoleSubmitter)

	supply := newTestSupply(t, database, user.ID, nil)
	newTestSupply(t, database, user.ID, nil)

	if err := SetSupplyStatus(ctx, database, supply.ID, model.StatusAccepted); err != nil {
		t.Fatalf("SetSupplyStatus: %v", err)
	}

	updated, _ := GetSupply(ctx, database, supply.ID)
	if updated.DecisionStatus != model.StatusAccepted {
		t.Errorf("expected %s, got %s", model.StatusAccepted, updated.DecisionStatus)
	}

	counts, err := CountSuppliesByStatus(ctx, database)
	if err != nil {
		t.Fatalf("CountSuppliesByStatus: %v", err)
	}
	if counts[model.StatusAccepted] != 1 || counts[model.StatusPendingInitial] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	pending, err := ListPendingSupplies(ctx, database, 10)
	if err != nil {
		t.Fatalf("ListPendingSupplies: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected 1 pending supply, got %d", len(pending))
	}
}
