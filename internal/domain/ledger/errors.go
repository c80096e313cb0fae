package ledger

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Error codes raised by the ledger domain
const (
	CodeValidationFailed             = "VALIDATION_FAILED"
	CodeInvalidAmount                = "INVALID_AMOUNT"
	CodeInvalidPaymentMethod         = "INVALID_PAYMENT_METHOD"
	CodeInvalidPaymentStatus         = "INVALID_PAYMENT_STATUS"
	CodeInvalidAllocation            = "INVALID_ALLOCATION"
	CodeDuplicateAllocation          = "DUPLICATE_ALLOCATION"
	CodeAllocationExceedsPayment     = "ALLOCATION_EXCEEDS_PAYMENT"
	CodeAmountNotEditable            = "AMOUNT_NOT_EDITABLE"
	CodeOrderNotFound                = "ORDER_NOT_FOUND"
	CodeCustomerNotFound             = "CUSTOMER_NOT_FOUND"
	CodePaymentNotFound              = "PAYMENT_NOT_FOUND"
	CodeAllocationExceedsOutstanding = "ALLOCATION_EXCEEDS_OUTSTANDING"
	CodeOrderNotOpen                 = "ORDER_NOT_OPEN"
	CodeOrderCustomerMismatch        = "ORDER_CUSTOMER_MISMATCH"
	CodePaidExceedsOwed              = "PAID_EXCEEDS_OWED"
	CodeReversalExceedsPaid          = "REVERSAL_EXCEEDS_PAID"
)

// MoneyScale is the number of decimal places amounts are stored with
const MoneyScale = 4

func validationError(message string) error {
	return shared.NewDomainError(CodeValidationFailed, message)
}

func invalidAmount(field string) error {
	return shared.NewDomainError(CodeInvalidAmount, fmt.Sprintf("%s must be positive", field))
}

// checkScale rejects amounts carrying more decimal places than storage keeps
func checkScale(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(MoneyScale)) {
		return shared.NewDomainError(CodeInvalidAmount,
			fmt.Sprintf("%s cannot have more than %d decimal places", field, MoneyScale))
	}
	return nil
}

func invalidPaymentMethod(method string) error {
	return shared.NewDomainError(CodeInvalidPaymentMethod, fmt.Sprintf("Unknown payment method %q", method))
}

// ErrOrderNotFound builds the not-found error for an order id
func ErrOrderNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeOrderNotFound, fmt.Sprintf("Order %s not found", id))
}

// ErrCustomerNotFound builds the not-found error for a customer id
func ErrCustomerNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeCustomerNotFound, fmt.Sprintf("Customer %s not found", id))
}

// ErrPaymentNotFound builds the not-found error for a due payment id
func ErrPaymentNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodePaymentNotFound, fmt.Sprintf("Due payment %s not found", id))
}

func exceedsOutstanding(orderNumber string, amount, outstanding decimal.Decimal) error {
	return shared.NewConsistencyError(CodeAllocationExceedsOutstanding,
		fmt.Sprintf("Allocation %s exceeds outstanding %s on order %s", amount.StringFixed(2), outstanding.StringFixed(2), orderNumber))
}
