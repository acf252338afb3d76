package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/surmed/surmed/internal/model"
)

var seedReasonCodes = []struct {
	code         string
	decisionType string
	description  string
}{
	{"ACC-001", model.DecisionAccepted, "Meets all safety and eligibility criteria. Sealed packaging, valid expiry, proper documentation."},
	{"ACC-002", model.DecisionAccepted, "Acceptable with minor packaging concerns. Supply is safe for redistribution with appropriate handling."},
	{"ACC-003", model.DecisionAccepted, "Priority acceptance due to high demand and short shelf life. Immediate redistribution recommended."},
	{"REV-001", model.DecisionReview, "Insufficient documentation provided. Additional evidence required before final decision."},
	{"REV-002", model.DecisionReview, "Packaging integrity concerns. Physical inspection required before acceptance."},
	{"REV-003", model.DecisionReview, "Storage conditions unclear. Need verification of proper handling before acceptance."},
	{"REV-004", model.DecisionReview, "Category requires specialist review. Escalating to senior reviewer."},
	{"REJ-001", model.DecisionRejected, "Expired supply. Cannot accept items past expiry date for safety reasons."},
	{"REJ-002", model.DecisionRejected, "Insufficient shelf life. Less than minimum required days until expiry."},
	{"REJ-003", model.DecisionRejected, "Damaged or compromised packaging. Safety and sterility cannot be guaranteed."},
	{"REJ-004", model.DecisionRejected, "Prescription medication. System does not accept controlled pharmaceutical drugs."},
	{"REJ-005", model.DecisionRejected, "Incomplete or missing batch information. Traceability requirements not met."},
	{"REJ-006", model.DecisionRejected, "Category not accepted. Item type outside program scope."},
}

var seedRules = []model.EligibilityRule{
	{
		Name:        "Minimum Shelf Life - 60 Days",
		Type:        model.RuleExpiryDate,
		Description: "Supply must have at least 60 days remaining until expiry to ensure adequate time for redistribution.",
		Active:      true,
		Blocking:    true,
		Params:      &model.ExpiryParams{MinShelfLifeDays: 60},
	},
	{
		Name:        "No Prescription Drugs",
		Type:        model.RuleCategory,
		Description: "Prescription medications and controlled substances are explicitly excluded from acceptance.",
		Active:      true,
		Blocking:    true,
		Params:      &model.CategoryParams{AllowedCategories: model.Categories},
	},
	{
		Name:        "Packaging Integrity - No Significant Damage",
		Type:        model.RulePackaging,
		Description: "Packaging must be sealed/unopened or have only minor acceptable damage to ensure product safety.",
		Active:      true,
		Blocking:    true,
		Params: &model.PackagingParams{RequiredStatuses: []string{
			model.PackagingSealed, model.PackagingOpenedIntact, model.PackagingMinorDamage,
		}},
	},
	{
		Name:        "Photo Evidence Required",
		Type:        model.RuleDocumentation,
		Description: "At least one photographic evidence of packaging, label, or product is required for verification.",
		Active:      true,
		Blocking:    false,
	},
	{
		Name:        "Quantity Minimum - 1 Unit",
		Type:        model.RuleQuantity,
		Description: "At least one unit must be submitted.",
		Active:      true,
		Blocking:    true,
		Params:      &model.QuantityParams{MinQuantity: 1},
	},
}

// SeedDefaults installs the standard reason codes and eligibility rules if
// they are missing. Safe to run on every startup; existing records are never
// modified.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	for _, rc := range seedReasonCodes {
		if err := EnsureReasonCode(ctx, db, rc.code, rc.decisionType, rc.description); err != nil {
			return err
		}
	}

	for _, rule := range seedRules {
		existing, err := GetRuleByName(ctx, db, rule.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := CreateRule(ctx, db, &rule); err != nil {
			return fmt.Errorf("seeding rule %q: %w", rule.Name, err)
		}
	}

	return nil
}
