package persistence

import (
	"strings"
)

// sortColumns maps the sort keys a caller may ask for to their columns.
// Anything else falls back to the list's default so raw input never reaches SQL.
type sortColumns map[string]string

// duePaymentSort is the whitelist for payment lists
var duePaymentSort = sortColumns{
	"payment_date":     "payment_date",
	"amount":           "amount",
	"unapplied_amount": "unapplied_amount",
	"payment_method":   "payment_method",
	"created_at":       "created_at",
}

// normalizeSortDir returns ASC or DESC, DESC when dir is anything else
func normalizeSortDir(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// column resolves key, or fallback when key is empty or not allowed
func (s sortColumns) column(key, fallback string) string {
	if col, ok := s[strings.TrimSpace(key)]; ok {
		return col
	}
	return fallback
}

// orderBy builds the ORDER BY clause. id breaks ties so pages are stable.
func (s sortColumns) orderBy(key, dir, fallback string) string {
	d := normalizeSortDir(dir)
	return s.column(key, fallback) + " " + d + ", id " + d
}
