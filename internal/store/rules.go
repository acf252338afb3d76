package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/surmed/surmed/internal/model"
)

const ruleColumns = `id, name, rule_type, description, is_active, is_blocking,
	        min_shelf_life_days, allowed_categories, required_packaging_status,
	        min_quantity, max_quantity, created_at, updated_at`

// CreateRule stores a new eligibility rule. Only the parameter columns
// matching the rule's type are written; the rest stay NULL.
func CreateRule(ctx context.Context, db *sql.DB, r *model.EligibilityRule) (*model.EligibilityRule, error) {
	cols, err := paramColumns(r)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO eligibility_rules
		     (name, rule_type, description, is_active, is_blocking,
		      min_shelf_life_days, allowed_categories, required_packaging_status,
		      min_quantity, max_quantity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, string(r.Type), r.Description, r.Active, r.Blocking,
		cols.minShelfLife, cols.allowedCategories, cols.requiredPackaging,
		cols.minQuantity, cols.maxQuantity,
	)
	if err != nil {
		return nil, fmt.Errorf("creating rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting rule id: %w", err)
	}

	return GetRule(ctx, db, id)
}

// GetRule returns a rule by ID.
func GetRule(ctx context.Context, db *sql.DB, id int64) (*model.EligibilityRule, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM eligibility_rules WHERE id = ?`, id,
	)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rule: %w", err)
	}
	return r, nil
}

// GetRuleByName returns a rule by name.
func GetRuleByName(ctx context.Context, db *sql.DB, name string) (*model.EligibilityRule, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM eligibility_rules WHERE name = ?`, name,
	)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rule by name: %w", err)
	}
	return r, nil
}

// ListRules returns all rules, active or not, in deterministic order.
func ListRules(ctx context.Context, db *sql.DB) ([]model.EligibilityRule, error) {
	return listRules(ctx, db, false)
}

// ListActiveRules returns the rules the eligibility engine should evaluate.
// Ordering is stable (type, then name) so check order is reproducible.
func ListActiveRules(ctx context.Context, db *sql.DB) ([]model.EligibilityRule, error) {
	return listRules(ctx, db, true)
}

func listRules(ctx context.Context, db *sql.DB, activeOnly bool) ([]model.EligibilityRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM eligibility_rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY rule_type, name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var rules []model.EligibilityRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// UpdateRule rewrites a rule's fields and parameters.
func UpdateRule(ctx context.Context, db *sql.DB, r *model.EligibilityRule) error {
	cols, err := paramColumns(r)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`UPDATE eligibility_rules
		 SET name = ?, rule_type = ?, description = ?, is_active = ?, is_blocking = ?,
		     min_shelf_life_days = ?, allowed_categories = ?, required_packaging_status = ?,
		     min_quantity = ?, max_quantity = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		r.Name, string(r.Type), r.Description, r.Active, r.Blocking,
		cols.minShelfLife, cols.allowedCategories, cols.requiredPackaging,
		cols.minQuantity, cols.maxQuantity, r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	return nil
}

// DeactivateRule takes a rule out of evaluation without deleting it, so old
// decision snapshots keep their provenance.
func DeactivateRule(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE eligibility_rules SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivating rule: %w", err)
	}
	return nil
}

type ruleParamColumns struct {
	minShelfLife      any
	allowedCategories any
	requiredPackaging any
	minQuantity       any
	maxQuantity       any
}

// paramColumns maps the typed parameter variant onto the storage columns.
// A mismatched variant is a programming error and rejected outright.
func paramColumns(r *model.EligibilityRule) (ruleParamColumns, error) {
	var cols ruleParamColumns
	if r.Params == nil {
		return cols, nil
	}

	switch p := r.Params.(type) {
	case *model.ExpiryParams:
		if r.Type != model.RuleExpiryDate {
			return cols, fmt.Errorf("expiry params on %s rule", r.Type)
		}
		if p.MinShelfLifeDays > 0 {
			cols.minShelfLife = p.MinShelfLifeDays
		}
	case *model.CategoryParams:
		if r.Type != model.RuleCategory {
			return cols, fmt.Errorf("category params on %s rule", r.Type)
		}
		if len(p.AllowedCategories) > 0 {
			data, err := json.Marshal(p.AllowedCategories)
			if err != nil {
				return cols, fmt.Errorf("encoding allowed categories: %w", err)
			}
			cols.allowedCategories = string(data)
		}
	case *model.PackagingParams:
		if r.Type != model.RulePackaging {
			return cols, fmt.Errorf("packaging params on %s rule", r.Type)
		}
		if len(p.RequiredStatuses) > 0 {
			data, err := json.Marshal(p.RequiredStatuses)
			if err != nil {
				return cols, fmt.Errorf("encoding required packaging statuses: %w", err)
			}
			cols.requiredPackaging = string(data)
		}
	case *model.QuantityParams:
		if r.Type != model.RuleQuantity {
			return cols, fmt.Errorf("quantity params on %s rule", r.Type)
		}
		if p.MinQuantity > 0 {
			cols.minQuantity = p.MinQuantity
		}
		if p.MaxQuantity > 0 {
			cols.maxQuantity = p.MaxQuantity
		}
	default:
		return cols, fmt.Errorf("unknown rule params %T", r.Params)
	}

	return cols, nil
}

// scanRule reads a rule row and rebuilds the typed parameter variant for its
// type. Parameter columns belonging to other types are ignored, so a rule
// can never act on parameters its checker does not interpret.
func scanRule(row rowScanner) (*model.EligibilityRule, error) {
	r := &model.EligibilityRule{}
	var ruleType string
	var minShelfLife, minQuantity, maxQuantity sql.NullInt64
	var allowedCategories, requiredPackaging sql.NullString

	err := row.Scan(&r.ID, &r.Name, &ruleType, &r.Description, &r.Active, &r.Blocking,
		&minShelfLife, &allowedCategories, &requiredPackaging,
		&minQuantity, &maxQuantity, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Type = model.RuleType(ruleType)

	switch r.Type {
	case model.RuleExpiryDate:
		if minShelfLife.Valid {
			r.Params = &model.ExpiryParams{MinShelfLifeDays: int(minShelfLife.Int64)}
		}
	case model.RuleCategory:
		if allowedCategories.Valid && allowedCategories.String != "" {
			var categories []string
			if err := json.Unmarshal([]byte(allowedCategories.String), &categories); err != nil {
				return nil, fmt.Errorf("decoding allowed categories: %w", err)
			}
			r.Params = &model.CategoryParams{AllowedCategories: categories}
		}
	case model.RulePackaging:
		if requiredPackaging.Valid && requiredPackaging.String != "" {
			var statuses []string
			if err := json.Unmarshal([]byte(requiredPackaging.String), &statuses); err != nil {
				return nil, fmt.Errorf("decoding required packaging statuses: %w", err)
			}
			r.Params = &model.PackagingParams{RequiredStatuses: statuses}
		}
	case model.RuleQuantity:
		if minQuantity.Valid || maxQuantity.Valid {
			r.Params = &model.QuantityParams{
				MinQuantity: int(minQuantity.Int64),
				MaxQuantity: int(maxQuantity.Int64),
			}
		}
	}

	return r, nil
}
