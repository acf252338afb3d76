package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/surmed/surmed/internal/model"
)

// AddEvidence attaches an evidence file to a supply. The file hash is
// computed here so integrity is recorded at write time.
func AddEvidence(ctx context.Context, db *sql.DB, supplyID int64, evidenceType string, data []byte, mime, description string, uploadedBy int64) (*model.Evidence, error) {
	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	result, err := db.ExecContext(ctx,
		`INSERT INTO evidence (supply_id, evidence_type, file, file_mime, file_hash, description, uploaded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		supplyID, evidenceType, data, mime, fileHash, description, uploadedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("adding evidence: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting evidence id: %w", err)
	}

	return GetEvidence(ctx, db, id)
}

// GetEvidence returns evidence metadata by ID (without file bytes).
func GetEvidence(ctx context.Context, db *sql.DB, id int64) (*model.Evidence, error) {
	e := &model.Evidence{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, supply_id, evidence_type, file_mime, LENGTH(file), file_hash,
		        description, uploaded_by, uploaded_at
		 FROM evidence WHERE id = ?`, id,
	).Scan(&e.ID, &e.SupplyID, &e.Type, &e.FileMime, &e.FileSize, &e.FileHash,
		&description, &e.UploadedBy, &e.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting evidence: %w", err)
	}
	e.Description = description.String
	return e, nil
}

// ListEvidence returns all evidence for a supply in upload order, metadata
// only.
func ListEvidence(ctx context.Context, db *sql.DB, supplyID int64) ([]model.Evidence, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, supply_id, evidence_type, file_mime, LENGTH(file), file_hash,
		        description, uploaded_by, uploaded_at
		 FROM evidence WHERE supply_id = ? ORDER BY uploaded_at, id`, supplyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing evidence: %w", err)
	}
	defer rows.Close()

	var items []model.Evidence
	for rows.Next() {
		var e model.Evidence
		var description sql.NullString
		if err := rows.Scan(&e.ID, &e.SupplyID, &e.Type, &e.FileMime, &e.FileSize, &e.FileHash,
			&description, &e.UploadedBy, &e.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		e.Description = description.String
		items = append(items, e)
	}
	return items, rows.Err()
}

// GetEvidenceFile returns the stored file bytes and MIME type.
func GetEvidenceFile(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT file, file_mime FROM evidence WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting evidence file: %w", err)
	}
	return data, mime, nil
}
