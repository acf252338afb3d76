package model

import (
	"encoding/json"
	"time"
)

// RuleType identifies which checker evaluates an eligibility rule.
type RuleType string

// Recognized rule types. CUSTOM exists in stored configuration but has no
// built-in checker and is skipped during evaluation.
const (
	RuleExpiryDate    RuleType = "EXPIRY_DATE"
	RuleCategory      RuleType = "CATEGORY"
	RulePackaging     RuleType = "PACKAGING"
	RuleQuantity      RuleType = "QUANTITY"
	RuleDocumentation RuleType = "DOCUMENTATION"
	RuleCustom        RuleType = "CUSTOM"
)

// RuleTypes lists every rule type accepted by the rule management API.
var RuleTypes = []RuleType{
	RuleExpiryDate, RuleCategory, RulePackaging,
	RuleQuantity, RuleDocumentation, RuleCustom,
}

// ValidRuleType reports whether t is a known rule type.
func ValidRuleType(t RuleType) bool {
	for _, rt := range RuleTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// RuleParams is the closed set of per-type rule parameters. Each rule type
// carries only the parameter variant it interprets, so a CATEGORY rule can
// never hold quantity limits.
type RuleParams interface {
	ruleParams()
}

// ExpiryParams configures EXPIRY_DATE rules. A zero MinShelfLifeDays means
// no minimum shelf life beyond "not expired".
type ExpiryParams struct {
	MinShelfLifeDays int
}

// CategoryParams configures CATEGORY rules. An empty allowlist means no
// restriction.
type CategoryParams struct {
	AllowedCategories []string
}

// PackagingParams configures PACKAGING rules. An empty set means no
// requirement.
type PackagingParams struct {
	RequiredStatuses []string
}

// QuantityParams configures QUANTITY rules. Zero values mean the bound is
// not configured.
type QuantityParams struct {
	MinQuantity int
	MaxQuantity int
}

func (*ExpiryParams) ruleParams()    {}
func (*CategoryParams) ruleParams()  {}
func (*PackagingParams) ruleParams() {}
func (*QuantityParams) ruleParams()  {}

// EligibilityRule is a configured acceptance criterion. Params is nil for
// types without parameters (DOCUMENTATION, CUSTOM) and for rules whose
// parameters were never set.
type EligibilityRule struct {
	ID          int64
	Name        string
	Type        RuleType
	Description string
	Active      bool
	Blocking    bool
	Params      RuleParams
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ruleJSON is the flat wire form of a rule. Parameter fields that do not
// apply to the rule type are omitted.
type ruleJSON struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Type              RuleType  `json:"rule_type"`
	Description       string    `json:"description"`
	Active            bool      `json:"is_active"`
	Blocking          bool      `json:"is_blocking"`
	MinShelfLifeDays  int       `json:"min_shelf_life_days,omitempty"`
	AllowedCategories []string  `json:"allowed_categories,omitempty"`
	RequiredStatuses  []string  `json:"required_packaging_statuses,omitempty"`
	MinQuantity       int       `json:"min_quantity,omitempty"`
	MaxQuantity       int       `json:"max_quantity,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MarshalJSON flattens the typed parameter variant into per-type fields.
func (r EligibilityRule) MarshalJSON() ([]byte, error) {
	wire := ruleJSON{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Description: r.Description,
		Active:      r.Active,
		Blocking:    r.Blocking,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	switch p := r.Params.(type) {
	case *ExpiryParams:
		wire.MinShelfLifeDays = p.MinShelfLifeDays
	case *CategoryParams:
		wire.AllowedCategories = p.AllowedCategories
	case *PackagingParams:
		wire.RequiredStatuses = p.RequiredStatuses
	case *QuantityParams:
		wire.MinQuantity = p.MinQuantity
		wire.MaxQuantity = p.MaxQuantity
	}

	return json.Marshal(wire)
}

// UnmarshalJSON rebuilds the parameter variant matching the rule type;
// parameter fields belonging to other types are dropped.
func (r *EligibilityRule) UnmarshalJSON(data []byte) error {
	var wire ruleJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = EligibilityRule{
		ID:          wire.ID,
		Name:        wire.Name,
		Type:        wire.Type,
		Description: wire.Description,
		Active:      wire.Active,
		Blocking:    wire.Blocking,
		CreatedAt:   wire.CreatedAt,
		UpdatedAt:   wire.UpdatedAt,
	}

	switch wire.Type {
	case RuleExpiryDate:
		r.Params = &ExpiryParams{MinShelfLifeDays: wire.MinShelfLifeDays}
	case RuleCategory:
		r.Params = &CategoryParams{AllowedCategories: wire.AllowedCategories}
	case RulePackaging:
		r.Params = &PackagingParams{RequiredStatuses: wire.RequiredStatuses}
	case RuleQuantity:
		r.Params = &QuantityParams{MinQuantity: wire.MinQuantity, MaxQuantity: wire.MaxQuantity}
	}

	return nil
}
