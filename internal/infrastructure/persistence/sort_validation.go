package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC.
// Anything other than asc, in any case, yields DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField if it is whitelisted, else defaultField.
// Column names are interpolated into ORDER BY, so only whitelisted names pass.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// FarmerSortFields contains allowed sort fields for farmers
var FarmerSortFields = map[string]bool{
	"name":            true,
	"identity_number": true,
	"created_at":      true,
	"updated_at":      true,
}
