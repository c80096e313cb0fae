package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormUnitOfWork implements ledger.UnitOfWork using GORM transactions.
// Every repository handed to the callback shares the same transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Transaction runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (u *GormUnitOfWork) Transaction(ctx context.Context, fn func(ctx context.Context, repos ledger.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Orders() ledger.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Customers() ledger.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() ledger.DuePaymentRepository {
	return NewGormDuePaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Counters() ledger.OrderCounterRepository {
	return NewGormOrderCounterRepository(r.tx)
}

var (
	_ ledger.UnitOfWork             = (*GormUnitOfWork)(nil)
	_ ledger.Repositories           = (*gormTransactionalRepositories)(nil)
	_ ledger.OrderRepository        = (*GormOrderRepository)(nil)
	_ ledger.CustomerRepository     = (*GormCustomerRepository)(nil)
	_ ledger.DuePaymentRepository   = (*GormDuePaymentRepository)(nil)
	_ ledger.OrderCounterRepository = (*GormOrderCounterRepository)(nil)
	_ ledger.LedgerReader           = (*GormLedgerReader)(nil)
)
