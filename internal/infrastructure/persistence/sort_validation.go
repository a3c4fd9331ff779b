package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC. Anything
// other than a case-insensitive "asc" collapses to DESC, so arbitrary input
// can never reach an ORDER BY clause.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks a requested sort column against a whitelist and
// falls back to defaultField for anything unknown, empty, or hostile.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	field := strings.TrimSpace(sortField)
	if !allowedFields[field] {
		return defaultField
	}
	return field
}

// CommonSortFields are the columns every listable entity supports.
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// OrderSortFields are the sortable columns of the orders listing.
var OrderSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"number":            true,
	"status":            true,
	"currency":          true,
	"subtotal_price":    true,
	"total_discount":    true,
	"total_tax":         true,
	"total_price":       true,
	"total_refunded":    true,
	"total_outstanding": true,
	"closed_at":         true,
	"cancelled_at":      true,
}

// OrderEditSortFields are the sortable columns of the order edits listing.
var OrderEditSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"status":       true,
	"total_price":  true,
	"committed_at": true,
}
