package ledger

import "strings"

// PaymentStatus is the settlement state of an order
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusDue     PaymentStatus = "due"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPending PaymentStatus = "pending"
)

// IsValid checks if the status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusDue, PaymentStatusPartial, PaymentStatusPending:
		return true
	}
	return false
}

// IsOpen reports whether the order carries a balance tracked by the ledger
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentStatusDue || s == PaymentStatusPartial
}

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// OpenPaymentStatuses returns the statuses that contribute to a customer's balance
func OpenPaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentStatusDue, PaymentStatusPartial}
}

// PaymentMethod is how a due payment was received
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodMobileBanking PaymentMethod = "mobile_banking"
	PaymentMethodCheque        PaymentMethod = "cheque"
	PaymentMethodOther         PaymentMethod = "other"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer,
		PaymentMethodMobileBanking, PaymentMethodCheque, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod normalizes case and surrounding space before validating
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", invalidPaymentMethod(s)
	}
	return m, nil
}
