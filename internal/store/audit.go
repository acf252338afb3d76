package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/surmed/surmed/internal/model"
)

// LogAction appends an entry to the audit log.
func LogAction(ctx context.Context, db *sql.DB, entry model.AuditEntry) error {
	var details any
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (action, user_id, supply_id, decision_id, ip_address, details)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Action, entry.UserID, entry.SupplyID, entry.DecisionID, entry.IPAddress, details,
	)
	if err != nil {
		return fmt.Errorf("logging audit action: %w", err)
	}
	return nil
}

// AuditFilter narrows ListAuditLog. Zero values mean "no filter".
type AuditFilter struct {
	Action   string
	UserID   int64
	SupplyID int64
	Limit    int
	Offset   int
}

// ListAuditLog returns audit entries newest first, optionally filtered.
func ListAuditLog(ctx context.Context, db *sql.DB, filter AuditFilter) ([]model.AuditEntry, error) {
	query := `SELECT a.id, a.action, a.user_id, a.supply_id, a.decision_id,
	                 a.ip_address, a.details, a.created_at,
	                 COALESCE(u.username, '') AS username
	          FROM audit_log a
	          LEFT JOIN users u ON u.id = a.user_id
	          WHERE 1=1`
	var args []any

	if filter.Action != "" {
		query += ` AND a.action = ?`
		args = append(args, filter.Action)
	}
	if filter.UserID > 0 {
		query += ` AND a.user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.SupplyID > 0 {
		query += ` AND a.supply_id = ?`
		args = append(args, filter.SupplyID)
	}

	query += ` ORDER BY a.created_at DESC, a.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit log: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var ip, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.SupplyID, &e.DecisionID,
			&ip, &details, &e.CreatedAt, &e.Username); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.IPAddress = ip.String
		if details.Valid && details.String != "" {
			e.Details = []byte(details.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
