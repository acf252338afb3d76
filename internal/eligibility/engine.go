// Package eligibility implements the rule-driven acceptance checks for
// donated supplies. Evaluation is a pure function of the supply, its
// evidence, the active rule set, and the evaluation time: no I/O, no
// mutation, always a result. Rules the engine cannot interpret are skipped,
// never failed.
package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/surmed/surmed/internal/model"
)

// Check is the outcome of evaluating one rule against a supply.
type Check struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
	Blocking bool   `json:"is_blocking"`
}

// Result aggregates all checks and advisory warnings for one evaluation.
// Checks keep rule evaluation order. A fresh Result is built per call and
// must not be mutated afterwards.
type Result struct {
	Checks   []Check
	Warnings []string
}

// IsEligible reports whether every blocking check passed. Non-blocking
// failures are recorded but never block.
func (r *Result) IsEligible() bool {
	for _, c := range r.Checks {
		if c.Blocking && !c.Passed {
			return false
		}
	}
	return true
}

// HasWarnings reports whether any advisory warnings were raised.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Summary returns a human-readable pass/fail tally. The ineligible wording
// counts every failed check, non-blocking ones included. This string is
// persisted inside decision snapshots, so the wording must stay stable.
func (r *Result) Summary() string {
	passed := 0
	blockingFailed := false
	for _, c := range r.Checks {
		if c.Passed {
			passed++
		} else if c.Blocking {
			blockingFailed = true
		}
	}
	if !blockingFailed {
		return fmt.Sprintf("Eligible: Passed %d/%d checks", passed, len(r.Checks))
	}
	return fmt.Sprintf("Ineligible: Failed %d blocking checks", len(r.Checks)-passed)
}

// Snapshot is the serializable form of a Result. Its field names and nesting
// are persisted verbatim on decision records, so they must stay stable.
type Snapshot struct {
	IsEligible bool     `json:"is_eligible"`
	Checks     []Check  `json:"checks"`
	Warnings   []string `json:"warnings"`
	Summary    string   `json:"summary"`
}

// Snapshot freezes the result into its serializable form. Slices are never
// nil so the stored JSON always carries arrays.
func (r *Result) Snapshot() Snapshot {
	checks := r.Checks
	if checks == nil {
		checks = []Check{}
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return Snapshot{
		IsEligible: r.IsEligible(),
		Checks:     checks,
		Warnings:   warnings,
		Summary:    r.Summary(),
	}
}

// Evaluate runs the supply through every active rule in order, then derives
// contextual warnings from the supply itself. Rules are an explicit input so
// callers control snapshot freshness; fetch the active set per request.
func Evaluate(supply *model.Supply, evidence []model.Evidence, rules []model.EligibilityRule, now time.Time) *Result {
	result := &Result{}

	for _, rule := range rules {
		if !rule.Active {
			continue
		}

		var check *Check
		switch rule.Type {
		case model.RuleExpiryDate:
			check = checkExpiryDate(supply, rule, now)
		case model.RuleCategory:
			check = checkCategory(supply, rule)
		case model.RulePackaging:
			check = checkPackaging(supply, rule)
		case model.RuleQuantity:
			check = checkQuantity(supply, rule)
		case model.RuleDocumentation:
			check = checkDocumentation(evidence, rule)
		case model.RuleCustom:
			// No built-in checker for custom rules.
			continue
		default:
			// Unknown rule type - skip, don't fail.
			continue
		}

		if check != nil {
			result.Checks = append(result.Checks, *check)
		}
	}

	result.Warnings = deriveWarnings(supply, now)
	return result
}

// checkExpiryDate fails expired supplies first; the minimum-shelf-life bound
// only applies to supplies that are still in date.
func checkExpiryDate(supply *model.Supply, rule model.EligibilityRule, now time.Time) *Check {
	if supply.IsExpired(now) {
		message := "Supply is expired (no expiry date provided)"
		if supply.ExpiryDate != nil {
			message = fmt.Sprintf("Supply is expired (expiry date: %s)", supply.ExpiryDate.Format("2006-01-02"))
		}
		return &Check{Name: rule.Name, Passed: false, Message: message, Blocking: rule.Blocking}
	}

	days, _ := supply.DaysUntilExpiry(now)

	if params, ok := rule.Params.(*model.ExpiryParams); ok && params.MinShelfLifeDays > 0 {
		if days < params.MinShelfLifeDays {
			return &Check{
				Name:     rule.Name,
				Passed:   false,
				Message:  fmt.Sprintf("Insufficient shelf life: %d days remaining (minimum: %d days)", days, params.MinShelfLifeDays),
				Blocking: rule.Blocking,
			}
		}
	}

	return &Check{
		Name:     rule.Name,
		Passed:   true,
		Message:  fmt.Sprintf("Valid expiry date: %d days remaining", days),
		Blocking: rule.Blocking,
	}
}

func checkCategory(supply *model.Supply, rule model.EligibilityRule) *Check {
	params, ok := rule.Params.(*model.CategoryParams)
	if !ok || len(params.AllowedCategories) == 0 {
		return &Check{Name: rule.Name, Passed: true, Message: "No category restrictions", Blocking: rule.Blocking}
	}

	for _, allowed := range params.AllowedCategories {
		if supply.Category == allowed {
			return &Check{
				Name:     rule.Name,
				Passed:   true,
				Message:  fmt.Sprintf("Category '%s' is allowed", supply.Category),
				Blocking: rule.Blocking,
			}
		}
	}

	return &Check{
		Name:     rule.Name,
		Passed:   false,
		Message:  fmt.Sprintf("Category '%s' is not in allowed list: %s", supply.Category, strings.Join(params.AllowedCategories, ", ")),
		Blocking: rule.Blocking,
	}
}

func checkPackaging(supply *model.Supply, rule model.EligibilityRule) *Check {
	params, ok := rule.Params.(*model.PackagingParams)
	if !ok || len(params.RequiredStatuses) == 0 {
		return &Check{Name: rule.Name, Passed: true, Message: "No packaging requirements", Blocking: rule.Blocking}
	}

	for _, status := range params.RequiredStatuses {
		if supply.PackagingStatus == status {
			return &Check{
				Name:     rule.Name,
				Passed:   true,
				Message:  fmt.Sprintf("Packaging status '%s' is acceptable", supply.PackagingStatus),
				Blocking: rule.Blocking,
			}
		}
	}

	return &Check{
		Name:     rule.Name,
		Passed:   false,
		Message:  fmt.Sprintf("Packaging status '%s' does not meet requirements", supply.PackagingStatus),
		Blocking: rule.Blocking,
	}
}

func checkQuantity(supply *model.Supply, rule model.EligibilityRule) *Check {
	params, ok := rule.Params.(*model.QuantityParams)

	if ok && params.MinQuantity > 0 && supply.Quantity < params.MinQuantity {
		return &Check{
			Name:     rule.Name,
			Passed:   false,
			Message:  fmt.Sprintf("Quantity %d below minimum %d", supply.Quantity, params.MinQuantity),
			Blocking: rule.Blocking,
		}
	}

	if ok && params.MaxQuantity > 0 && supply.Quantity > params.MaxQuantity {
		return &Check{
			Name:     rule.Name,
			Passed:   false,
			Message:  fmt.Sprintf("Quantity %d exceeds maximum %d", supply.Quantity, params.MaxQuantity),
			Blocking: rule.Blocking,
		}
	}

	return &Check{
		Name:     rule.Name,
		Passed:   true,
		Message:  fmt.Sprintf("Quantity %d is within acceptable limits", supply.Quantity),
		Blocking: rule.Blocking,
	}
}

// checkDocumentation requires evidence, and photographic evidence in
// particular. The no-photo sub-check passes outright on non-blocking rules:
// the blocking flag feeds the verdict itself, not just the aggregation.
// Preserved as-is because stored snapshots depend on it.
func checkDocumentation(evidence []model.Evidence, rule model.EligibilityRule) *Check {
	if len(evidence) == 0 {
		return &Check{
			Name:     rule.Name,
			Passed:   false,
			Message:  "No evidence documentation provided",
			Blocking: rule.Blocking,
		}
	}

	hasPhoto := false
	for _, e := range evidence {
		if e.IsPhoto() {
			hasPhoto = true
			break
		}
	}

	if !hasPhoto {
		return &Check{
			Name:     rule.Name,
			Passed:   !rule.Blocking,
			Message:  "No photographic evidence provided",
			Blocking: rule.Blocking,
		}
	}

	return &Check{
		Name:     rule.Name,
		Passed:   true,
		Message:  fmt.Sprintf("%d evidence items provided", len(evidence)),
		Blocking: rule.Blocking,
	}
}

// shortShelfLifeDays is the fixed advisory threshold for the shelf-life
// warning. Warnings are not rule-configurable.
const shortShelfLifeDays = 90

// deriveWarnings produces advisory warnings from supply attributes alone,
// independent of which rules are active or how they evaluated. Order is
// fixed: shelf life, packaging, storage, batch number.
func deriveWarnings(supply *model.Supply, now time.Time) []string {
	var warnings []string

	if days, known := supply.DaysUntilExpiry(now); known && days < shortShelfLifeDays {
		warnings = append(warnings, fmt.Sprintf(
			"Short shelf life: Only %d days until expiry. High-priority redistribution recommended.", days))
	}

	switch supply.PackagingStatus {
	case model.PackagingOpenedIntact, model.PackagingMinorDamage, model.PackagingSignificantDamage:
		warnings = append(warnings, fmt.Sprintf(
			"Packaging integrity concern: %s. Additional review recommended.",
			model.PackagingStatusName(supply.PackagingStatus)))
	}

	if supply.StorageConditions == model.StorageUnknown {
		warnings = append(warnings,
			"Storage conditions unknown. Verify with submitter before final decision.")
	}

	if supply.BatchNumber == "" {
		warnings = append(warnings,
			"No batch number provided. Traceability may be limited.")
	}

	return warnings
}
