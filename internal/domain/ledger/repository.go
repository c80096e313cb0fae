package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository persists the financial state of orders
type OrderRepository interface {
	// FindByID returns ErrOrderNotFound when the order does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate loads the order and holds a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	// LockByIDs locks the given orders in ascending id order and returns them keyed by id
	LockByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Order, error)
	// FindOpenByCustomer returns due and partial orders, oldest first
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	// FindOpenByCustomerForUpdate locks the open orders in id order; the result is not FIFO sorted
	FindOpenByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	ExistsForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error)
	Create(ctx context.Context, order *Order) error
	// Save writes the financial fields with an optimistic version check
	Save(ctx context.Context, order *Order) error
}

// CustomerRepository persists customers
type CustomerRepository interface {
	// FindByID returns ErrCustomerNotFound when the customer does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindFirstByNameAndPhone returns the earliest customer with this exact name and phone, or nil
	FindFirstByNameAndPhone(ctx context.Context, name, phone string) (*Customer, error)
	// FindFirstByName returns the earliest customer with this exact name, or nil
	FindFirstByName(ctx context.Context, name string) (*Customer, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, customer *Customer) error
}

// DuePaymentFilter defines filtering options for payment list queries
type DuePaymentFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID
	BranchID      *uuid.UUID
	PaymentMethod *PaymentMethod
	FromDate      *time.Time
	ToDate        *time.Time
}

// DuePaymentRepository persists due payments and their allocations
type DuePaymentRepository interface {
	// FindByID loads the payment with its allocations
	FindByID(ctx context.Context, id uuid.UUID) (*DuePayment, error)
	// FindByIDForUpdate loads the payment with its allocations under a row lock
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*DuePayment, error)
	FindAll(ctx context.Context, filter DuePaymentFilter) ([]DuePayment, int64, error)
	ExistsForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error)
	// Create inserts the payment row only
	Create(ctx context.Context, payment *DuePayment) error
	CreateAllocation(ctx context.Context, allocation *DuePaymentAllocation) error
	// Save writes the mutable payment columns with an optimistic version check
	Save(ctx context.Context, payment *DuePayment) error
	// Delete removes the allocation rows and then the payment
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderCounterRepository hands out order numbers
type OrderCounterRepository interface {
	// Next creates the counter if absent, locks it, increments it and returns the new value.
	// It must run inside the transaction that consumes the number.
	Next(ctx context.Context, name string) (int64, error)
}

// LedgerScope narrows what the aggregator reads
type LedgerScope struct {
	CustomerID *uuid.UUID
	BranchID   *uuid.UUID
	// FromDate and ToDate bound order creation time, both inclusive
	FromDate *time.Time
	ToDate   *time.Time
}

// LedgerReader loads the rows the customer ledger is derived from. Reads take no locks.
type LedgerReader interface {
	ListCustomers(ctx context.Context, scope LedgerScope) ([]Customer, error)
	ListOrders(ctx context.Context, scope LedgerScope) ([]Order, error)
	ListPaymentCredits(ctx context.Context, scope LedgerScope) ([]PaymentCredit, error)
}

// Repositories are bound to one transaction
type Repositories interface {
	Orders() OrderRepository
	Customers() CustomerRepository
	Payments() DuePaymentRepository
	Counters() OrderCounterRepository
}

// UnitOfWork runs fn in one transaction. Returning an error rolls everything back.
type UnitOfWork interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
