package eligibility

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// Run fetches the current active rules and the supply's evidence, evaluates,
// and returns the verdict with its serializable snapshot. This is what the
// decision workflow uses to freeze eligibility state at decision time.
func Run(ctx context.Context, db *sql.DB, supply *model.Supply) (bool, Snapshot, error) {
	rules, err := store.ListActiveRules(ctx, db)
	if err != nil {
		return false, Snapshot{}, fmt.Errorf("loading active rules: %w", err)
	}

	evidence, err := store.ListEvidence(ctx, db, supply.ID)
	if err != nil {
		return false, Snapshot{}, fmt.Errorf("loading evidence: %w", err)
	}

	result := Evaluate(supply, evidence, rules, time.Now())
	return result.IsEligible(), result.Snapshot(), nil
}
