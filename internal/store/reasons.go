package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/surmed/surmed/internal/model"
)

// CreateReasonCode stores a new reason code.
func CreateReasonCode(ctx context.Context, db *sql.DB, code, decisionType, description string) (*model.ReasonCode, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO reason_codes (code, decision_type, description) VALUES (?, ?, ?)`,
		code, decisionType, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating reason code: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting reason code id: %w", err)
	}

	return GetReasonCode(ctx, db, id)
}

// EnsureReasonCode creates a reason code if its code does not already exist.
// Used by first-run seeding; existing codes are left untouched.
func EnsureReasonCode(ctx context.Context, db *sql.DB, code, decisionType, description string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reason_codes (code, decision_type, description) VALUES (?, ?, ?)`,
		code, decisionType, description,
	)
	if err != nil {
		return fmt.Errorf("ensuring reason code %s: %w", code, err)
	}
	return nil
}

// GetReasonCode returns a reason code by ID.
func GetReasonCode(ctx context.Context, db *sql.DB, id int64) (*model.ReasonCode, error) {
	rc := &model.ReasonCode{}
	err := db.QueryRowContext(ctx,
		`SELECT id, code, decision_type, description, is_active, created_at
		 FROM reason_codes WHERE id = ?`, id,
	).Scan(&rc.ID, &rc.Code, &rc.DecisionType, &rc.Description, &rc.Active, &rc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting reason code: %w", err)
	}
	return rc, nil
}

// ListReasonCodes returns reason codes ordered by code. With activeOnly set,
// inactive codes are omitted.
func ListReasonCodes(ctx context.Context, db *sql.DB, activeOnly bool) ([]model.ReasonCode, error) {
	query := `SELECT id, code, decision_type, description, is_active, created_at FROM reason_codes`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY code`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing reason codes: %w", err)
	}
	defer rows.Close()

	var codes []model.ReasonCode
	for rows.Next() {
		var rc model.ReasonCode
		if err := rows.Scan(&rc.ID, &rc.Code, &rc.DecisionType, &rc.Description, &rc.Active, &rc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reason code: %w", err)
		}
		codes = append(codes, rc)
	}
	return codes, rows.Err()
}

// SetReasonCodeActive flips a reason code's active flag.
func SetReasonCodeActive(ctx context.Context, db *sql.DB, id int64, active bool) error {
	_, err := db.ExecContext(ctx,
		`UPDATE reason_codes SET is_active = ? WHERE id = ?`, active, id,
	)
	if err != nil {
		return fmt.Errorf("setting reason code active: %w", err)
	}
	return nil
}
