package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/surmed/surmed/internal/model"
)

const decisionColumns = `d.id, d.supply_id, d.decision, d.decision_level, d.reason_code_id,
	        d.justification, d.notes, d.decided_by, d.decided_at,
	        d.eligibility_passed, d.eligibility_details, d.decision_hash, d.is_superseded,
	        s.supply_ref, s.item_name, u.username AS decider_name, rc.code AS reason_code`

// CreateDecision records a decision in a single transaction: prior decisions
// for the supply are marked superseded, the new record is inserted with its
// integrity hash, and the supply status is updated to match the verdict.
func CreateDecision(ctx context.Context, db *sql.DB, d *model.Decision) (*model.Decision, error) {
	newStatus := model.SupplyStatusForDecision(d.Decision)
	if newStatus == "" {
		return nil, fmt.Errorf("invalid decision %q", d.Decision)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var supplyRef string
	err = tx.QueryRowContext(ctx,
		`SELECT supply_ref FROM supplies WHERE id = ?`, d.SupplyID,
	).Scan(&supplyRef)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("supply %d not found", d.SupplyID)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up supply: %w", err)
	}

	// Newer decisions supersede, never overwrite.
	if _, err := tx.ExecContext(ctx,
		`UPDATE decisions SET is_superseded = 1 WHERE supply_id = ? AND is_superseded = 0`,
		d.SupplyID,
	); err != nil {
		return nil, fmt.Errorf("superseding prior decisions: %w", err)
	}

	decidedAt := time.Now()
	hash := model.ComputeDecisionHash(supplyRef, d.Decision, d.DecidedBy, decidedAt)

	var details any
	if len(d.EligibilityDetails) > 0 {
		details = string(d.EligibilityDetails)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO decisions (supply_id, decision, decision_level, reason_code_id,
		                        justification, notes, decided_by, eligibility_passed,
		                        eligibility_details, decision_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.SupplyID, d.Decision, d.Level, d.ReasonCodeID,
		d.Justification, d.Notes, d.DecidedBy, d.EligibilityPassed,
		details, hash,
	)
	if err != nil {
		return nil, fmt.Errorf("recording decision: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE supplies SET decision_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newStatus, d.SupplyID,
	); err != nil {
		return nil, fmt.Errorf("updating supply status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing decision: %w", err)
	}

	decisionID, _ := result.LastInsertId()
	return GetDecision(ctx, db, decisionID)
}

// GetDecision returns a decision by ID with its joined display fields.
func GetDecision(ctx context.Context, db *sql.DB, id int64) (*model.Decision, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+`
		 FROM decisions d
		 JOIN supplies s ON s.id = d.supply_id
		 JOIN users u ON u.id = d.decided_by
		 JOIN reason_codes rc ON rc.id = d.reason_code_id
		 WHERE d.id = ?`, id,
	)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting decision: %w", err)
	}
	return d, nil
}

// DecisionFilter narrows ListDecisions and DecisionStats. Zero values mean
// "no filter".
type DecisionFilter struct {
	From     *time.Time
	To       *time.Time
	Decision string
	Search   string // matches supply_ref, item_name, or reason code
	Limit    int
	Offset   int
}

// ListDecisions returns decisions newest first, optionally filtered.
func ListDecisions(ctx context.Context, db *sql.DB, filter DecisionFilter) ([]model.Decision, error) {
	query := `SELECT ` + decisionColumns + `
	          FROM decisions d
	          JOIN supplies s ON s.id = d.supply_id
	          JOIN users u ON u.id = d.decided_by
	          JOIN reason_codes rc ON rc.id = d.reason_code_id
	          WHERE 1=1`
	query, args := applyDecisionFilter(query, filter)

	query += ` ORDER BY d.decided_at DESC, d.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	var decisions []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

// ListSupplyDecisions returns the full decision history of one supply,
// newest first.
func ListSupplyDecisions(ctx context.Context, db *sql.DB, supplyID int64) ([]model.Decision, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+decisionColumns+`
		 FROM decisions d
		 JOIN supplies s ON s.id = d.supply_id
		 JOIN users u ON u.id = d.decided_by
		 JOIN reason_codes rc ON rc.id = d.reason_code_id
		 WHERE d.supply_id = ?
		 ORDER BY d.decided_at DESC, d.id DESC`, supplyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing supply decisions: %w", err)
	}
	defer rows.Close()

	var decisions []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

// ListRecentDecisions returns the most recent decisions.
func ListRecentDecisions(ctx context.Context, db *sql.DB, limit int) ([]model.Decision, error) {
	return ListDecisions(ctx, db, DecisionFilter{Limit: limit})
}

// DecisionStats tallies decisions matching the filter.
func DecisionStats(ctx context.Context, db *sql.DB, filter DecisionFilter) (model.DecisionStats, error) {
	query := `SELECT
	              COUNT(*),
	              COALESCE(SUM(CASE WHEN d.decision = 'ACCEPTED' THEN 1 ELSE 0 END), 0),
	              COALESCE(SUM(CASE WHEN d.decision = 'REVIEW' THEN 1 ELSE 0 END), 0),
	              COALESCE(SUM(CASE WHEN d.decision = 'REJECTED' THEN 1 ELSE 0 END), 0)
	          FROM decisions d
	          JOIN supplies s ON s.id = d.supply_id
	          JOIN reason_codes rc ON rc.id = d.reason_code_id
	          WHERE 1=1`
	query, args := applyDecisionFilter(query, filter)

	var stats model.DecisionStats
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Total, &stats.Accepted, &stats.Review, &stats.Rejected,
	)
	if err != nil {
		return model.DecisionStats{}, fmt.Errorf("counting decisions: %w", err)
	}
	return stats, nil
}

func applyDecisionFilter(query string, filter DecisionFilter) (string, []any) {
	var args []any
	if filter.From != nil {
		query += ` AND d.decided_at >= ?`
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		// Callers pass the exclusive end of the range (midnight after the
		// last included day), so a strict comparison keeps it exclusive.
		query += ` AND d.decided_at < ?`
		args = append(args, filter.To.UTC())
	}
	if filter.Decision != "" {
		query += ` AND d.decision = ?`
		args = append(args, filter.Decision)
	}
	if filter.Search != "" {
		query += ` AND (s.supply_ref LIKE ? OR s.item_name LIKE ? OR rc.code LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	return query, args
}

func scanDecision(row rowScanner) (*model.Decision, error) {
	d := &model.Decision{}
	var notes, details sql.NullString
	err := row.Scan(&d.ID, &d.SupplyID, &d.Decision, &d.Level, &d.ReasonCodeID,
		&d.Justification, &notes, &d.DecidedBy, &d.DecidedAt,
		&d.EligibilityPassed, &details, &d.DecisionHash, &d.Superseded,
		&d.SupplyRef, &d.ItemName, &d.DeciderName, &d.ReasonCode)
	if err != nil {
		return nil, err
	}
	d.Notes = notes.String
	if details.Valid && details.String != "" {
		d.EligibilityDetails = []byte(details.String)
	}
	return d, nil
}
