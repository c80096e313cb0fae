package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerService resolves the customers orders and payments are booked against
type CustomerService struct {
	uow       ledger.UnitOfWork
	customers ledger.CustomerRepository
	logger    *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(uow ledger.UnitOfWork, customers ledger.CustomerRepository, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{uow: uow, customers: customers, logger: logger}
}

// FindOrCreateCustomer returns the earliest customer matching name and phone,
// then the earliest matching name alone, and creates one otherwise.
// The bool reports whether a customer was created.
func (s *CustomerService) FindOrCreateCustomer(ctx context.Context, input CustomerInput) (*CustomerResponse, bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "find_or_create")
	defer span.End()

	var (
		customer *ledger.Customer
		created  bool
	)
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		var err error
		customer, created, err = findOrCreateCustomer(ctx, repos.Customers(), input.toDomain())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, false, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCustomerID, customer.ID, "created", created)
	if created {
		s.logger.Info("Customer created",
			zap.String("customer_id", customer.ID.String()),
			zap.String("name", customer.Name),
		)
	}
	resp := ToCustomerResponse(customer)
	return &resp, created, nil
}

// GetCustomer returns a customer by id
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// findOrCreateCustomer runs inside the caller's transaction. Two concurrent
// calls for a new name may both create a row; the earliest one wins later lookups.
func findOrCreateCustomer(ctx context.Context, repo ledger.CustomerRepository, in ledger.CustomerInput) (*ledger.Customer, bool, error) {
	in = in.Normalized()
	candidate, err := ledger.NewCustomer(in)
	if err != nil {
		return nil, false, err
	}

	if in.Phone != "" {
		found, err := repo.FindFirstByNameAndPhone(ctx, in.Name, in.Phone)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up customer by name and phone: %w", err)
		}
		if found != nil {
			return found, false, nil
		}
	}
	found, err := repo.FindFirstByName(ctx, in.Name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up customer by name: %w", err)
	}
	if found != nil {
		return found, false, nil
	}

	if err := repo.Create(ctx, candidate); err != nil {
		return nil, false, fmt.Errorf("failed to create customer: %w", err)
	}
	return candidate, true, nil
}
