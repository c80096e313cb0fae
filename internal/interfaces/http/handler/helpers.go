package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dateLayout is accepted next to RFC 3339 for date-only inputs
const dateLayout = "2006-01-02"

// parseDecimal parses a money string; empty means zero
func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %q is not a decimal", field, s)
	}
	return d, nil
}

// parseDecimalPtr parses an optional money string
func parseDecimalPtr(field string, s *string) (*decimal.Decimal, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := parseDecimal(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseUUIDPtr parses an optional id
func parseUUIDPtr(field, s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format", field)
	}
	return &id, nil
}

// parseTime accepts RFC 3339 or a bare date. endOfDay moves a bare date to
// its last nanosecond, for inclusive upper bounds.
func parseTime(field, s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: use RFC 3339 or YYYY-MM-DD", field)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// pathID parses the :id route parameter
func pathID(c *gin.Context, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID format", what)
	}
	return id, nil
}

// branchOrDefault returns the explicit branch, else the X-Branch-ID scope
func branchOrDefault(c *gin.Context, field, explicit string) (*uuid.UUID, error) {
	id, err := parseUUIDPtr(field, explicit)
	if err != nil {
		return nil, err
	}
	if id != nil {
		return id, nil
	}
	return middleware.GetBranchID(c), nil
}
