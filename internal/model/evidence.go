package model

import (
	"strings"
	"time"
)

// Evidence is a supporting file attached to a supply submission, typed by
// what it documents. The file bytes live in the database; listings omit them.
type Evidence struct {
	ID          int64     `json:"id"`
	SupplyID    int64     `json:"supply_id"`
	Type        string    `json:"evidence_type"`
	FileMime    string    `json:"file_mime"`
	FileSize    int       `json:"file_size"`
	FileHash    string    `json:"file_hash"`
	Description string    `json:"description,omitempty"`
	UploadedBy  int64     `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Evidence types. The PHOTO_ prefix marks photographic evidence, which the
// eligibility engine treats specially.
const (
	EvidencePhotoPackaging  = "PHOTO_PACKAGING"
	EvidencePhotoLabel      = "PHOTO_LABEL"
	EvidencePhotoProduct    = "PHOTO_PRODUCT"
	EvidenceDocumentCOA     = "DOCUMENT_COA"
	EvidenceDocumentInvoice = "DOCUMENT_INVOICE"
	EvidenceDocumentOther   = "DOCUMENT_OTHER"
)

// EvidenceTypes lists all accepted evidence types.
var EvidenceTypes = []string{
	EvidencePhotoPackaging, EvidencePhotoLabel, EvidencePhotoProduct,
	EvidenceDocumentCOA, EvidenceDocumentInvoice, EvidenceDocumentOther,
}

// ValidEvidenceType reports whether t is a known evidence type.
func ValidEvidenceType(t string) bool {
	return contains(EvidenceTypes, t)
}

// IsPhoto reports whether the evidence item is photographic.
func (e *Evidence) IsPhoto() bool {
	return IsPhotoEvidenceType(e.Type)
}

// IsPhotoEvidenceType reports whether t names a photographic evidence type.
func IsPhotoEvidenceType(t string) bool {
	return strings.HasPrefix(t, "PHOTO_")
}
