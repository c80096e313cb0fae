package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDuePayment(t *testing.T) {
	customerID := uuid.New()

	t.Run("starts fully unapplied", func(t *testing.T) {
		p, err := NewDuePayment(customerID, dec("50"), PaymentMethodCash, time.Now())
		require.NoError(t, err)
		assert.True(t, p.UnappliedAmount.Equal(dec("50")))
		assert.Empty(t, p.Allocations)
		assert.True(t, p.IsBalanced())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewDuePayment(customerID, decimal.Zero, PaymentMethodCash, time.Now())
		assert.Equal(t, CodeInvalidAmount, domainCode(err))
	})

	t.Run("rejects amounts finer than four places", func(t *testing.T) {
		_, err := NewDuePayment(customerID, dec("0.00004"), PaymentMethodCash, time.Now())
		assert.Equal(t, CodeInvalidAmount, domainCode(err))

		p, err := NewDuePayment(customerID, dec("10.0001"), PaymentMethodCash, time.Now())
		require.NoError(t, err)
		_, err = p.Allocate(uuid.New(), dec("1.00005"))
		assert.Equal(t, CodeInvalidAmount, domainCode(err))
		assert.True(t, p.UnappliedAmount.Equal(dec("10.0001")))
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		_, err := NewDuePayment(customerID, dec("1"), "barter", time.Now())
		assert.Equal(t, CodeInvalidPaymentMethod, domainCode(err))
	})

	t.Run("rejects missing customer", func(t *testing.T) {
		_, err := NewDuePayment(uuid.Nil, dec("1"), PaymentMethodCash, time.Now())
		assert.Error(t, err)
	})

	t.Run("defaults payment date", func(t *testing.T) {
		p, err := NewDuePayment(customerID, dec("1"), PaymentMethodCard, time.Time{})
		require.NoError(t, err)
		assert.False(t, p.PaymentDate.IsZero())
	})
}

func TestDuePayment_Allocate(t *testing.T) {
	customerID := uuid.New()

	t.Run("allocations plus credit equal the amount", func(t *testing.T) {
		p, err := NewDuePayment(customerID, dec("50.00"), PaymentMethodCash, time.Now())
		require.NoError(t, err)
		alloc, err := p.Allocate(uuid.New(), dec("40.00"))
		require.NoError(t, err)
		assert.Equal(t, p.ID, alloc.PaymentID)
		assert.True(t, p.UnappliedAmount.Equal(dec("10")))
		assert.True(t, p.AllocatedAmount().Equal(dec("40")))
		assert.True(t, p.IsBalanced())
	})

	t.Run("cannot allocate beyond the payment", func(t *testing.T) {
		p, _ := NewDuePayment(customerID, dec("10"), PaymentMethodCash, time.Now())
		_, err := p.Allocate(uuid.New(), dec("10.01"))
		assert.Equal(t, CodeAllocationExceedsPayment, domainCode(err))
	})

	t.Run("cannot allocate the same order twice", func(t *testing.T) {
		p, _ := NewDuePayment(customerID, dec("10"), PaymentMethodCash, time.Now())
		orderID := uuid.New()
		_, err := p.Allocate(orderID, dec("1"))
		require.NoError(t, err)
		_, err = p.Allocate(orderID, dec("1"))
		assert.Equal(t, CodeDuplicateAllocation, domainCode(err))
	})
}

func TestDuePayment_Correct(t *testing.T) {
	p, err := NewDuePayment(uuid.New(), dec("25"), PaymentMethodCash, time.Now())
	require.NoError(t, err)
	_, err = p.Allocate(uuid.New(), dec("20"))
	require.NoError(t, err)

	method := PaymentMethodCheque
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ref := "CHQ-1001"
	require.NoError(t, p.Correct(PaymentCorrection{PaymentMethod: &method, PaymentDate: &date, Reference: &ref}))

	assert.Equal(t, PaymentMethodCheque, p.PaymentMethod)
	assert.True(t, p.PaymentDate.Equal(date))
	assert.Equal(t, "CHQ-1001", p.Reference)
	assert.True(t, p.Amount.Equal(dec("25")))
	assert.Len(t, p.Allocations, 1)
	assert.True(t, p.UnappliedAmount.Equal(dec("5")))

	bad := PaymentMethod("iou")
	assert.Error(t, p.Correct(PaymentCorrection{PaymentMethod: &bad}))
}
