package entity

import "strings"

// Invoice status values. Legacy records from the upload and editor screens
// are mapped onto these by NormalizeStatus.
const (
	StatusProcessing      = "processing"
	StatusDraft           = "draft"
	StatusValidated       = "validated"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
	StatusExported        = "exported"
	StatusError           = "error"
)

// Category values used by reports. The set is open; anything else is kept
// verbatim and grouped as-is by the aggregation functions.
const (
	CategoryOfficeSupplies = "Office Supplies"
	CategorySoftware       = "Software"
	CategoryTravel         = "Travel"
	CategoryMarketing      = "Marketing"
	CategoryUtilities      = "Utilities"
	CategoryOther          = "Other"
)

// Source values describing how a record entered the system
const (
	SourceUpload = "upload"
	SourceScan   = "scan"
	SourceImport = "import"
	SourceManual = "manual"
)

// Defaults applied during normalization
const (
	DefaultVendor       = "Unknown Vendor"
	DefaultCurrency     = "USD"
	DefaultDueDays      = 30
	DefaultConfidence   = 50
	InvoiceNumberPrefix = "AUTO-"
)

// ReportCategories is the fixed order used by category breakdowns
var ReportCategories = []string{
	CategoryOfficeSupplies,
	CategorySoftware,
	CategoryTravel,
	CategoryMarketing,
	CategoryUtilities,
	CategoryOther,
}

var validStatuses = map[string]bool{
	StatusProcessing:      true,
	StatusDraft:           true,
	StatusValidated:       true,
	StatusPendingApproval: true,
	StatusApproved:        true,
	StatusRejected:        true,
	StatusExported:        true,
	StatusError:           true,
}

var legacyStatuses = map[string]string{
	"processed": StatusValidated,
	"completed": StatusValidated,
	"pending":   StatusDraft,
	"uploading": StatusProcessing,
}

var processedStatuses = map[string]bool{
	StatusValidated:       true,
	StatusPendingApproval: true,
	StatusApproved:        true,
	StatusExported:        true,
}

// IsValidStatus reports whether s is one of the unified status values
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// IsProcessedStatus reports whether a record in status s counts as processed
// on dashboards and reports.
func IsProcessedStatus(s string) bool {
	return processedStatuses[s]
}

// IsPendingStatus reports whether a record still waits for user or AI action
func IsPendingStatus(s string) bool {
	return s == StatusProcessing || s == StatusDraft || s == StatusPendingApproval
}

// NormalizeStatus maps legacy and unified status strings onto the unified set.
// Unknown values become draft.
func NormalizeStatus(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if validStatuses[v] {
		return v
	}
	if mapped, ok := legacyStatuses[v]; ok {
		return mapped
	}
	return StatusDraft
}

// NormalizeCategory maps empty and legacy placeholder categories to Other
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	switch strings.ToLower(c) {
	case "", "uncategorized", "other":
		return CategoryOther
	}
	for _, known := range ReportCategories {
		if strings.EqualFold(known, c) {
			return known
		}
	}
	return c
}
