package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerReader loads the rows the customer ledger is derived from.
// It reads without locks; the ledger is a report, not a decision point.
type GormLedgerReader struct {
	db *gorm.DB
}

// NewGormLedgerReader creates a new GormLedgerReader
func NewGormLedgerReader(db *gorm.DB) *GormLedgerReader {
	return &GormLedgerReader{db: db}
}

// ListCustomers returns customers visible in the scope. With a branch, that is
// customers of the branch, customers without a branch, and anyone with an
// order or payment recorded at the branch.
func (r *GormLedgerReader) ListCustomers(ctx context.Context, scope ledger.LedgerScope) ([]ledger.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.CustomerModel{})
	if scope.CustomerID != nil {
		query = query.Where("id = ?", *scope.CustomerID)
	}
	if scope.BranchID != nil {
		branchID := *scope.BranchID
		query = query.Where(
			r.db.Where("branch_id = ? OR branch_id IS NULL", branchID).
				Or("id IN (?)", r.db.Model(&models.OrderModel{}).Select("customer_id").Where("branch_id = ? AND customer_id IS NOT NULL", branchID)).
				Or("id IN (?)", r.db.Model(&models.DuePaymentModel{}).Select("customer_id").Where("branch_id = ?", branchID)),
		)
	}

	var customerModels []models.CustomerModel
	if err := query.Order("name ASC").Order("id ASC").Find(&customerModels).Error; err != nil {
		return nil, err
	}
	customers := make([]ledger.Customer, len(customerModels))
	for i := range customerModels {
		customers[i] = *customerModels[i].ToDomain()
	}
	return customers, nil
}

// ListOrders returns orders with a customer, narrowed by customer, branch and creation date
func (r *GormLedgerReader) ListOrders(ctx context.Context, scope ledger.LedgerScope) ([]ledger.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("customer_id IS NOT NULL")
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.BranchID != nil {
		query = query.Where("branch_id = ?", *scope.BranchID)
	}
	if scope.FromDate != nil {
		query = query.Where("created_at >= ?", *scope.FromDate)
	}
	if scope.ToDate != nil {
		query = query.Where("created_at <= ?", *scope.ToDate)
	}

	var orderModels []models.OrderModel
	if err := query.Order("created_at ASC").Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]ledger.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// ListPaymentCredits returns the unapplied part of every payment in the scope.
// The date range does not apply to payments.
func (r *GormLedgerReader) ListPaymentCredits(ctx context.Context, scope ledger.LedgerScope) ([]ledger.PaymentCredit, error) {
	query := r.db.WithContext(ctx).Model(&models.DuePaymentModel{})
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.BranchID != nil {
		query = query.Where("branch_id = ?", *scope.BranchID)
	}

	var paymentModels []models.DuePaymentModel
	if err := query.
		Select("id", "customer_id", "branch_id", "unapplied_amount").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	credits := make([]ledger.PaymentCredit, len(paymentModels))
	for i, m := range paymentModels {
		credits[i] = ledger.PaymentCredit{
			PaymentID:       m.ID,
			CustomerID:      m.CustomerID,
			BranchID:        m.BranchID,
			UnappliedAmount: m.UnappliedAmount,
		}
	}
	return credits, nil
}
