package model

import "time"

// ReasonCode is a standardized classification attached to every decision,
// e.g. REJ-001 for expired supplies.
type ReasonCode struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	DecisionType string    `json:"decision_type"`
	Description  string    `json:"description"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReasonAny marks a reason code usable with any decision type.
const ReasonAny = "ANY"

// ValidReasonDecisionType reports whether t is a valid reason code scope.
func ValidReasonDecisionType(t string) bool {
	return t == ReasonAny || ValidDecision(t)
}

// AppliesTo reports whether the reason code may justify the given decision.
func (rc *ReasonCode) AppliesTo(decision string) bool {
	return rc.DecisionType == ReasonAny || rc.DecisionType == decision
}
