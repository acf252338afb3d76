package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Decision is an immutable record of an accept/review/reject call on a
// supply. The eligibility snapshot freezes the engine's verdict at decision
// time so the audit trail stays meaningful even after rules change.
type Decision struct {
	ID                 int64           `json:"id"`
	SupplyID           int64           `json:"supply_id"`
	Decision           string          `json:"decision"`
	Level              string          `json:"decision_level"`
	ReasonCodeID       int64           `json:"reason_code_id"`
	Justification      string          `json:"justification"`
	Notes              string          `json:"notes,omitempty"`
	DecidedBy          int64           `json:"decided_by"`
	DecidedAt          time.Time       `json:"decided_at"`
	EligibilityPassed  bool            `json:"eligibility_passed"`
	EligibilityDetails json.RawMessage `json:"eligibility_details,omitempty"`
	DecisionHash       string          `json:"decision_hash,omitempty"`
	Superseded         bool            `json:"is_superseded"`

	// Joined fields (not always populated).
	SupplyRef   string `json:"supply_ref,omitempty"`
	ItemName    string `json:"item_name,omitempty"`
	DeciderName string `json:"decider_name,omitempty"`
	ReasonCode  string `json:"reason_code,omitempty"`
}

// Decisions.
const (
	DecisionAccepted = "ACCEPTED"
	DecisionReview   = "REVIEW"
	DecisionRejected = "REJECTED"
)

// Decision levels.
const (
	LevelInitial  = "INITIAL"
	LevelFinal    = "FINAL"
	LevelOverride = "OVERRIDE"
)

// ValidDecision reports whether d is a known decision value.
func ValidDecision(d string) bool {
	return d == DecisionAccepted || d == DecisionReview || d == DecisionRejected
}

// SupplyStatusForDecision maps a decision to the supply status it produces.
func SupplyStatusForDecision(decision string) string {
	switch decision {
	case DecisionAccepted:
		return StatusAccepted
	case DecisionReview:
		return StatusNeedsReview
	case DecisionRejected:
		return StatusRejected
	default:
		return ""
	}
}

// ComputeDecisionHash produces the integrity fingerprint recorded with every
// decision.
func ComputeDecisionHash(supplyRef, decision string, decidedBy int64, decidedAt time.Time) string {
	data := fmt.Sprintf("%s|%s|%d|%s", supplyRef, decision, decidedBy, decidedAt.UTC().Format(time.RFC3339))
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// DecisionStats tallies decisions for the audit views.
type DecisionStats struct {
	Total    int `json:"total_decisions"`
	Accepted int `json:"accepted_count"`
	Review   int `json:"review_count"`
	Rejected int `json:"rejected_count"`
}
