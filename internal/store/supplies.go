package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/surmed/surmed/internal/model"
)

const supplyColumns = `s.id, s.supply_ref, s.item_name, s.category, s.quantity, s.unit,
	        s.description, s.expiry_date, s.batch_number, s.packaging_status,
	        s.storage_conditions, s.submitted_by, s.decision_status, s.custody_hash,
	        s.created_at, s.updated_at, u.username AS submitter_name`

// CreateSupply records a new supply submission. The reference ID and custody
// hash are generated here so they exist from the first write.
func CreateSupply(ctx context.Context, db *sql.DB, s *model.Supply) (*model.Supply, error) {
	now := time.Now()
	ref := model.NewSupplyRef(now)
	custodyHash := model.ComputeCustodyHash(ref, s.ItemName, now, s.SubmittedBy)

	var expiry any
	if s.ExpiryDate != nil {
		expiry = s.ExpiryDate.Format("2006-01-02")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO supplies (supply_ref, item_name, category, quantity, unit, description,
		                       expiry_date, batch_number, packaging_status, storage_conditions,
		                       submitted_by, custody_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref, s.ItemName, s.Category, s.Quantity, s.Unit, s.Description,
		expiry, s.BatchNumber, s.PackagingStatus, s.StorageConditions,
		s.SubmittedBy, custodyHash,
	)
	if err != nil {
		return nil, fmt.Errorf("creating supply: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting supply id: %w", err)
	}

	return GetSupply(ctx, db, id)
}

// GetSupply returns a supply by ID.
func GetSupply(ctx context.Context, db *sql.DB, id int64) (*model.Supply, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+supplyColumns+`
		 FROM supplies s
		 JOIN users u ON u.id = s.submitted_by
		 WHERE s.id = ?`, id,
	)
	s, err := scanSupply(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supply: %w", err)
	}
	return s, nil
}

// GetSupplyByRef returns a supply by its reference ID (SUP-...).
func GetSupplyByRef(ctx context.Context, db *sql.DB, ref string) (*model.Supply, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+supplyColumns+`
		 FROM supplies s
		 JOIN users u ON u.id = s.submitted_by
		 WHERE s.supply_ref = ?`, ref,
	)
	s, err := scanSupply(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supply by ref: %w", err)
	}
	return s, nil
}

// SupplyFilter narrows ListSupplies. Zero values mean "no filter".
type SupplyFilter struct {
	Status   string
	Category string
	Search   string // matches supply_ref, item_name, or batch_number
	Limit    int
	Offset   int
}

// ListSupplies returns supplies newest first, optionally filtered.
func ListSupplies(ctx context.Context, db *sql.DB, filter SupplyFilter) ([]model.Supply, error) {
	query := `SELECT ` + supplyColumns + `
	          FROM supplies s
	          JOIN users u ON u.id = s.submitted_by
	          WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND s.decision_status = ?`
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		query += ` AND s.category = ?`
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += ` AND (s.supply_ref LIKE ? OR s.item_name LIKE ? OR s.batch_number LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query += ` ORDER BY s.created_at DESC, s.id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing supplies: %w", err)
	}
	defer rows.Close()

	var supplies []model.Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning supply: %w", err)
		}
		supplies = append(supplies, *s)
	}
	return supplies, rows.Err()
}

// ListPendingSupplies returns supplies awaiting a decision, newest first.
func ListPendingSupplies(ctx context.Context, db *sql.DB, limit int) ([]model.Supply, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+supplyColumns+`
		 FROM supplies s
		 JOIN users u ON u.id = s.submitted_by
		 WHERE s.decision_status IN (?, ?, ?)
		 ORDER BY s.created_at DESC, s.id DESC
		 LIMIT ?`,
		model.StatusPendingInitial, model.StatusPendingFinal, model.StatusNeedsReview, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending supplies: %w", err)
	}
	defer rows.Close()

	var supplies []model.Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning supply: %w", err)
		}
		supplies = append(supplies, *s)
	}
	return supplies, rows.Err()
}

// CountSuppliesByStatus returns the number of supplies per decision status.
func CountSuppliesByStatus(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT decision_status, COUNT(*) FROM supplies GROUP BY decision_status`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting supplies: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning supply count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// SetSupplyStatus updates a supply's decision status.
func SetSupplyStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE supplies SET decision_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting supply status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupply(row rowScanner) (*model.Supply, error) {
	s := &model.Supply{}
	var description, expiryDate, batchNumber sql.NullString
	err := row.Scan(&s.ID, &s.SupplyRef, &s.ItemName, &s.Category, &s.Quantity, &s.Unit,
		&description, &expiryDate, &batchNumber, &s.PackagingStatus,
		&s.StorageConditions, &s.SubmittedBy, &s.DecisionStatus, &s.CustodyHash,
		&s.CreatedAt, &s.UpdatedAt, &s.SubmitterName)
	if err != nil {
		return nil, err
	}
	s.Description = description.String
	s.BatchNumber = batchNumber.String
	if expiryDate.Valid && expiryDate.String != "" {
		t, err := time.Parse("2006-01-02", expiryDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing expiry date %q: %w", expiryDate.String, err)
		}
		s.ExpiryDate = &t
	}
	return s, nil
}
