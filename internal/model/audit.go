package model

import (
	"encoding/json"
	"time"
)

// AuditEntry records a single system action for traceability beyond the
// decision records themselves.
type AuditEntry struct {
	ID         int64           `json:"id"`
	Action     string          `json:"action"`
	UserID     *int64          `json:"user_id,omitempty"`
	SupplyID   *int64          `json:"supply_id,omitempty"`
	DecisionID *int64          `json:"decision_id,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`

	// Joined field (not always populated).
	Username string `json:"username,omitempty"`
}

// Audit actions.
const (
	ActionSupplySubmitted  = "SUPPLY_SUBMITTED"
	ActionEvidenceUploaded = "EVIDENCE_UPLOADED"
	ActionDecisionMade     = "DECISION_MADE"
	ActionStatusChanged    = "STATUS_CHANGED"
	ActionRuleModified     = "RULE_MODIFIED"
	ActionExportGenerated  = "EXPORT_GENERATED"
)
