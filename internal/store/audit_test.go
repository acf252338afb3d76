package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/surmed/surmed/internal/db"
	"github.com/surmed/surmed/internal/model"
)

func TestLogActionAndList(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := newTestUser(t, database, "reviewer", model.RoleReviewer)
	supply := newTestSupply(t, database, user.ID, nil)

	details, _ := json.Marshal(map[string]string{"supply_ref": supply.SupplyRef})
	err := LogAction(ctx, database, model.AuditEntry{
		Action:    model.ActionSupplySubmitted,
		UserID:    &user.ID,
		SupplyID:  &supply.ID,
		IPAddress: "10.0.0.5",
		Details:   details,
	})
	if err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	if err := LogAction(ctx, database, model.AuditEntry{Action: model.ActionExportGenerated, UserID: &user.ID}); err != nil {
		t.Fatalf("LogAction: %v", err)
	}

	entries, err := ListAuditLog(ctx, database, AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	submissions, err := ListAuditLog(ctx, database, AuditFilter{Action: model.ActionSupplySubmitted})
	if err != nil {
		t.Fatalf("ListAuditLog filtered: %v", err)
	}
	if len(submissions) != 1 {
		t.Fatalf("expected 1 submission entry, got %d", len(submissions))
	}

	entry := submissions[0]
	if entry.Username != "reviewer" {
		t.Errorf("expected joined username, got %q", entry.Username)
	}
	if entry.IPAddress != "10.0.0.5" {
		t.Errorf("expected IP address, got %q", entry.IPAddress)
	}

	var decoded map[string]string
	if err := json.Unmarshal(entry.Details, &decoded); err != nil {
		t.Fatalf("decoding details: %v", err)
	}
	if decoded["supply_ref"] != supply.SupplyRef {
		t.Errorf("details lost: %v", decoded)
	}
}

func TestListAuditLogBySupply(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := newTestUser(t, database, "submitter", model.RoleSubmitter)
	s1 := newTestSupply(t, database, user.ID, nil)
	s2 := newTestSupply(t, database, user.ID, nil)

	for _, s := range []*model.Supply{s1, s2} {
		if err := LogAction(ctx, database, model.AuditEntry{
			Action: model.ActionSupplySubmitted, UserID: &user.ID, SupplyID: &s.ID,
		}); err != nil {
			t.Fatalf("LogAction: %v", err)
		}
	}

	entries, err := ListAuditLog(ctx, database, AuditFilter{SupplyID: s2.ID})
	if err != nil {
		t.Fatalf("ListAuditLog: %v", err)
	}
	if len(entries) != 1 || *entries[0].SupplyID != s2.ID {
		t.Errorf("supply filter returned %+v", entries)
	}
}
