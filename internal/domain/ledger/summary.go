package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// DefaultInvoicePrefix is prepended to order numbers on printed invoices
const DefaultInvoicePrefix = "INV-"

// PaymentCredit is the part of a due payment the ledger rollup needs
type PaymentCredit struct {
	PaymentID       uuid.UUID
	CustomerID      uuid.UUID
	BranchID        *uuid.UUID
	UnappliedAmount decimal.Decimal
}

// CustomerDueSummary is the derived ledger position of one customer.
// TotalDue and TotalPaid are lifetime volumes; Balance is what is owed right now.
type CustomerDueSummary struct {
	CustomerID  uuid.UUID
	Name        string
	Phone       string
	Email       string
	BranchID    *uuid.UUID
	Placeholder bool

	TotalDue    decimal.Decimal
	TotalPaid   decimal.Decimal
	Balance     decimal.Decimal
	Credit      decimal.Decimal
	OrdersCount int

	TotalOrders   int
	PaymentsCount int

	orderNumbers []string
}

func newSummary(id uuid.UUID) *CustomerDueSummary {
	return &CustomerDueSummary{
		CustomerID: id,
		TotalDue:   decimal.Zero,
		TotalPaid:  decimal.Zero,
		Balance:    decimal.Zero,
		Credit:     decimal.Zero,
	}
}

// HasActivity reports whether the customer has any order or payment on record
func (s *CustomerDueSummary) HasActivity() bool {
	return s.TotalOrders > 0 || s.PaymentsCount > 0
}

func (s *CustomerDueSummary) addOrder(o *Order) {
	s.TotalOrders++
	s.TotalDue = s.TotalDue.Add(o.Total)
	s.TotalPaid = s.TotalPaid.Add(o.PaidAmount)
	if o.IsOpen() {
		s.OrdersCount++
		s.Balance = s.Balance.Add(o.Outstanding())
	}
	s.orderNumbers = append(s.orderNumbers, o.OrderNumber)
}

func (s *CustomerDueSummary) addCredit(c PaymentCredit) {
	s.PaymentsCount++
	s.Credit = s.Credit.Add(c.UnappliedAmount)
}

// Summarize computes one customer's rollup from their orders and payments.
// Rows belonging to other customers are ignored.
func Summarize(customerID uuid.UUID, orders []Order, credits []PaymentCredit) CustomerDueSummary {
	s := newSummary(customerID)
	for i := range orders {
		if orders[i].BelongsTo(customerID) {
			s.addOrder(&orders[i])
		}
	}
	for _, c := range credits {
		if c.CustomerID == customerID {
			s.addCredit(c)
		}
	}
	return *s
}

// BuildCustomerSummaries rolls up every customer. Customer ids referenced only
// from orders or payments get a placeholder entry named after the order's
// customer name. Results are ordered by name, then id.
func BuildCustomerSummaries(customers []Customer, orders []Order, credits []PaymentCredit) []CustomerDueSummary {
	index := make(map[uuid.UUID]*CustomerDueSummary, len(customers))
	for i := range customers {
		c := &customers[i]
		s := newSummary(c.ID)
		s.Name = c.Name
		s.Phone = c.Phone
		s.Email = c.Email
		s.BranchID = c.BranchID
		index[c.ID] = s
	}

	lookup := func(id uuid.UUID) *CustomerDueSummary {
		s, ok := index[id]
		if !ok {
			s = newSummary(id)
			s.Placeholder = true
			index[id] = s
		}
		return s
	}

	for i := range orders {
		o := &orders[i]
		if o.CustomerID == nil {
			continue
		}
		s := lookup(*o.CustomerID)
		if s.Placeholder && s.Name == "" {
			s.Name = o.CustomerName
		}
		s.addOrder(o)
	}
	for _, c := range credits {
		lookup(c.CustomerID).addCredit(c)
	}

	out := make([]CustomerDueSummary, 0, len(index))
	for _, s := range index {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].CustomerID.String() < out[j].CustomerID.String()
	})
	return out
}

// LedgerStatus filters customers by where they stand
type LedgerStatus string

const (
	// LedgerStatusPending matches customers with a positive balance
	LedgerStatusPending LedgerStatus = "pending"
	// LedgerStatusCleared matches customers with history and nothing owed
	LedgerStatusCleared LedgerStatus = "cleared"
	// LedgerStatusNoRecord matches customers with no orders and no payments
	LedgerStatusNoRecord LedgerStatus = "no-record"
)

// ParseLedgerStatus accepts "pending", "cleared", "no-record" or "no_record"; empty means no filter
func ParseLedgerStatus(s string) (LedgerStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "pending":
		return LedgerStatusPending, nil
	case "cleared":
		return LedgerStatusCleared, nil
	case "no-record", "no_record":
		return LedgerStatusNoRecord, nil
	}
	return "", validationError(fmt.Sprintf("Unknown ledger status %q", s))
}

// Matches reports whether a summary falls under this status
func (st LedgerStatus) Matches(s *CustomerDueSummary) bool {
	switch st {
	case LedgerStatusPending:
		return s.Balance.IsPositive()
	case LedgerStatusCleared:
		return s.Balance.IsZero() && s.HasActivity()
	case LedgerStatusNoRecord:
		return !s.HasActivity() && s.Balance.IsZero()
	}
	return true
}

// SummaryQuery holds the filters applied after branch and date scoping
type SummaryQuery struct {
	Search        string
	Status        LedgerStatus
	MinBalance    *decimal.Decimal
	MaxBalance    *decimal.Decimal
	InvoicePrefix string
	Page          int
	PageSize      int
}

// Validate rejects contradictory bounds
func (q SummaryQuery) Validate() error {
	if q.MinBalance != nil && q.MaxBalance != nil && q.MinBalance.GreaterThan(*q.MaxBalance) {
		return validationError("Minimum balance cannot exceed maximum balance")
	}
	return nil
}

// InvoiceNumber returns the order number to match exactly when the search is
// numeric or carries the invoice prefix.
func (q SummaryQuery) InvoiceNumber() (string, bool) {
	s := strings.TrimSpace(q.Search)
	if s == "" {
		return "", false
	}
	if isDigits(s) {
		return s, true
	}
	prefix := q.InvoicePrefix
	if prefix != "" && len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):]), true
	}
	return "", false
}

// Apply filters by search, status and balance range in that order, then
// paginates. It returns the page and the number of matches before paging.
func (q SummaryQuery) Apply(summaries []CustomerDueSummary) ([]CustomerDueSummary, int) {
	matchSearch := q.searchMatcher()

	filtered := make([]CustomerDueSummary, 0, len(summaries))
	for i := range summaries {
		s := &summaries[i]
		if !matchSearch(s) {
			continue
		}
		if q.Status != "" && !q.Status.Matches(s) {
			continue
		}
		if q.MinBalance != nil && s.Balance.LessThan(*q.MinBalance) {
			continue
		}
		if q.MaxBalance != nil && s.Balance.GreaterThan(*q.MaxBalance) {
			continue
		}
		filtered = append(filtered, *s)
	}

	total := len(filtered)
	if q.PageSize <= 0 {
		return filtered, total
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * q.PageSize
	if start >= total {
		return []CustomerDueSummary{}, total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return filtered[start:end], total
}

func (q SummaryQuery) searchMatcher() func(*CustomerDueSummary) bool {
	if strings.TrimSpace(q.Search) == "" {
		return func(*CustomerDueSummary) bool { return true }
	}
	if number, ok := q.InvoiceNumber(); ok {
		return func(s *CustomerDueSummary) bool {
			for _, n := range s.orderNumbers {
				if n == number {
					return true
				}
			}
			return false
		}
	}

	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(q.Search))
	return func(s *CustomerDueSummary) bool {
		return strings.Contains(fold.String(s.Name), needle) ||
			strings.Contains(fold.String(s.Phone), needle) ||
			strings.Contains(fold.String(s.Email), needle)
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
