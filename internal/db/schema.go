package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'submitter' CHECK (role IN ('admin', 'reviewer', 'submitter')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS supplies (
    id                 INTEGER PRIMARY KEY,
    supply_ref         TEXT NOT NULL UNIQUE,
    item_name          TEXT NOT NULL,
    category           TEXT NOT NULL CHECK (category IN
                           ('PPE', 'SURGICAL', 'DIAGNOSTIC', 'WOUND_CARE', 'EQUIPMENT', 'OTHER_SUPPLIES')),
    quantity           INTEGER NOT NULL CHECK (quantity > 0),
    unit               TEXT NOT NULL CHECK (unit IN ('pieces', 'boxes', 'packs', 'units', 'sets')),
    description        TEXT,
    expiry_date        TEXT,
    batch_number       TEXT,
    packaging_status   TEXT NOT NULL CHECK (packaging_status IN
                           ('SEALED_UNOPENED', 'OPENED_INTACT', 'MINOR_DAMAGE', 'SIGNIFICANT_DAMAGE')),
    storage_conditions TEXT NOT NULL CHECK (storage_conditions IN
                           ('CONTROLLED', 'ROOM_TEMP', 'REFRIGERATED', 'UNKNOWN')),
    submitted_by       INTEGER NOT NULL REFERENCES users(id),
    decision_status    TEXT NOT NULL DEFAULT 'PENDING_INITIAL' CHECK (decision_status IN
                           ('PENDING_INITIAL', 'PENDING_FINAL', 'ACCEPTED', 'NEEDS_REVIEW', 'REJECTED')),
    custody_hash       TEXT NOT NULL,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_supplies_status ON supplies(decision_status, created_at);

CREATE TABLE IF NOT EXISTS evidence (
    id            INTEGER PRIMARY KEY,
    supply_id     INTEGER NOT NULL REFERENCES supplies(id) ON DELETE CASCADE,
    evidence_type TEXT NOT NULL CHECK (evidence_type IN
                      ('PHOTO_PACKAGING', 'PHOTO_LABEL', 'PHOTO_PRODUCT',
                       'DOCUMENT_COA', 'DOCUMENT_INVOICE', 'DOCUMENT_OTHER')),
    file          BLOB NOT NULL,
    file_mime     TEXT NOT NULL,
    file_hash     TEXT NOT NULL,
    description   TEXT,
    uploaded_by   INTEGER NOT NULL REFERENCES users(id),
    uploaded_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_evidence_supply ON evidence(supply_id);

CREATE TABLE IF NOT EXISTS eligibility_rules (
    id                        INTEGER PRIMARY KEY,
    name                      TEXT NOT NULL,
    rule_type                 TEXT NOT NULL CHECK (rule_type IN
                                  ('EXPIRY_DATE', 'CATEGORY', 'PACKAGING', 'QUANTITY', 'DOCUMENTATION', 'CUSTOM')),
    description               TEXT NOT NULL DEFAULT '',
    is_active                 INTEGER NOT NULL DEFAULT 1,
    is_blocking               INTEGER NOT NULL DEFAULT 1,
    min_shelf_life_days       INTEGER,
    allowed_categories        TEXT,
    required_packaging_status TEXT,
    min_quantity              INTEGER,
    max_quantity              INTEGER,
    created_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reason_codes (
    id            INTEGER PRIMARY KEY,
    code          TEXT NOT NULL UNIQUE,
    decision_type TEXT NOT NULL CHECK (decision_type IN ('ACCEPTED', 'REVIEW', 'REJECTED', 'ANY')),
    description   TEXT NOT NULL,
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS decisions (
    id                  INTEGER PRIMARY KEY,
    supply_id           INTEGER NOT NULL REFERENCES supplies(id),
    decision            TEXT NOT NULL CHECK (decision IN ('ACCEPTED', 'REVIEW', 'REJECTED')),
    decision_level      TEXT NOT NULL CHECK (decision_level IN ('INITIAL', 'FINAL', 'OVERRIDE')),
    reason_code_id      INTEGER NOT NULL REFERENCES reason_codes(id),
    justification       TEXT NOT NULL,
    notes               TEXT,
    decided_by          INTEGER NOT NULL REFERENCES users(id),
    decided_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    eligibility_passed  INTEGER NOT NULL,
    eligibility_details TEXT,
    decision_hash       TEXT NOT NULL,
    is_superseded       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_decisions_supply ON decisions(supply_id, decided_at);

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY,
    action      TEXT NOT NULL,
    user_id     INTEGER REFERENCES users(id),
    supply_id   INTEGER REFERENCES supplies(id),
    decision_id INTEGER REFERENCES decisions(id),
    ip_address  TEXT,
    details     TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action, created_at);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at the
// end.
var migrations []string

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
