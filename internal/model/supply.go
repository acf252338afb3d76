package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Supply represents a donated medical supply submitted for redistribution
// consideration. The decision status tracks it from submission through the
// accept/review/reject workflow.
type Supply struct {
	ID                int64      `json:"id"`
	SupplyRef         string     `json:"supply_id"`
	ItemName          string     `json:"item_name"`
	Category          string     `json:"category"`
	Quantity          int        `json:"quantity"`
	Unit              string     `json:"unit"`
	Description       string     `json:"description,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	BatchNumber       string     `json:"batch_number,omitempty"`
	PackagingStatus   string     `json:"packaging_status"`
	StorageConditions string     `json:"storage_conditions"`
	SubmittedBy       int64      `json:"submitted_by"`
	DecisionStatus    string     `json:"decision_status"`
	CustodyHash       string     `json:"custody_hash,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Joined field (not always populated).
	SubmitterName string `json:"submitter_name,omitempty"`
}

// Supply categories.
const (
	CategoryPPE        = "PPE"
	CategorySurgical   = "SURGICAL"
	CategoryDiagnostic = "DIAGNOSTIC"
	CategoryWoundCare  = "WOUND_CARE"
	CategoryEquipment  = "EQUIPMENT"
	CategoryOther      = "OTHER_SUPPLIES"
)

// Packaging statuses.
const (
	PackagingSealed            = "SEALED_UNOPENED"
	PackagingOpenedIntact      = "OPENED_INTACT"
	PackagingMinorDamage       = "MINOR_DAMAGE"
	PackagingSignificantDamage = "SIGNIFICANT_DAMAGE"
)

// Storage conditions.
const (
	StorageControlled   = "CONTROLLED"
	StorageRoomTemp     = "ROOM_TEMP"
	StorageRefrigerated = "REFRIGERATED"
	StorageUnknown      = "UNKNOWN"
)

// Decision statuses a supply moves through.
const (
	StatusPendingInitial = "PENDING_INITIAL"
	StatusPendingFinal   = "PENDING_FINAL"
	StatusAccepted       = "ACCEPTED"
	StatusNeedsReview    = "NEEDS_REVIEW"
	StatusRejected       = "REJECTED"
)

// Units a quantity can be expressed in.
var Units = []string{"pieces", "boxes", "packs", "units", "sets"}

// Categories lists all valid supply categories.
var Categories = []string{
	CategoryPPE, CategorySurgical, CategoryDiagnostic,
	CategoryWoundCare, CategoryEquipment, CategoryOther,
}

// PackagingStatuses lists all valid packaging statuses.
var PackagingStatuses = []string{
	PackagingSealed, PackagingOpenedIntact,
	PackagingMinorDamage, PackagingSignificantDamage,
}

// StorageConditions lists all valid storage conditions.
var StorageConditions = []string{
	StorageControlled, StorageRoomTemp, StorageRefrigerated, StorageUnknown,
}

// ValidCategory reports whether category is a known supply category.
func ValidCategory(category string) bool {
	return contains(Categories, category)
}

// ValidPackagingStatus reports whether status is a known packaging status.
func ValidPackagingStatus(status string) bool {
	return contains(PackagingStatuses, status)
}

// ValidStorageConditions reports whether conditions is a known storage value.
func ValidStorageConditions(conditions string) bool {
	return contains(StorageConditions, conditions)
}

// ValidUnit reports whether unit is a known quantity unit.
func ValidUnit(unit string) bool {
	return contains(Units, unit)
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// PackagingStatusName returns the display name for a packaging status.
func PackagingStatusName(status string) string {
	switch status {
	case PackagingSealed:
		return "Sealed & Unopened"
	case PackagingOpenedIntact:
		return "Opened but Intact"
	case PackagingMinorDamage:
		return "Minor Damage"
	case PackagingSignificantDamage:
		return "Significant Damage"
	default:
		return status
	}
}

// DaysUntilExpiry returns the whole days between now's date and the expiry
// date. Negative when the supply is past expiry. The second return value is
// false when no expiry date is recorded.
func (s *Supply) DaysUntilExpiry(now time.Time) (int, bool) {
	if s.ExpiryDate == nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	expiry := time.Date(s.ExpiryDate.Year(), s.ExpiryDate.Month(), s.ExpiryDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(expiry.Sub(today).Hours() / 24), true
}

// IsExpired reports whether the supply is past its expiry date. A supply
// without an expiry date is treated as expired.
func (s *Supply) IsExpired(now time.Time) bool {
	days, known := s.DaysUntilExpiry(now)
	if !known {
		return true
	}
	return days < 0
}

// NewSupplyRef generates a human-readable supply reference of the form
// SUP-20060102-A1B2C3D4. The random suffix comes from a v4 UUID.
func NewSupplyRef(now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(id[:4]))
	return fmt.Sprintf("SUP-%s-%s", now.Format("20060102"), suffix)
}

// ComputeCustodyHash produces the chain-of-custody fingerprint recorded when
// a supply enters the system.
func ComputeCustodyHash(supplyRef, itemName string, submittedAt time.Time, submittedBy int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", supplyRef, itemName, submittedAt.UTC().Format(time.RFC3339), submittedBy)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
