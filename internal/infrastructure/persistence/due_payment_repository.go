package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDuePaymentRepository implements ledger.DuePaymentRepository using GORM
type GormDuePaymentRepository struct {
	db *gorm.DB
}

// NewGormDuePaymentRepository creates a new GormDuePaymentRepository
func NewGormDuePaymentRepository(db *gorm.DB) *GormDuePaymentRepository {
	return &GormDuePaymentRepository{db: db}
}

// FindByID finds a due payment by ID with its allocations
func (r *GormDuePaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.DuePayment, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a due payment by ID and locks its row
func (r *GormDuePaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.DuePayment, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormDuePaymentRepository) findOne(query *gorm.DB, id uuid.UUID) (*ledger.DuePayment, error) {
	var model models.DuePaymentModel
	if err := query.
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrPaymentNotFound(id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists due payments matching the filter together with the total match count
func (r *GormDuePaymentRepository) FindAll(ctx context.Context, filter ledger.DuePaymentFilter) ([]ledger.DuePayment, int64, error) {
	var total int64
	countQuery := r.applyFilter(r.db.WithContext(ctx).Model(&models.DuePaymentModel{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.DuePaymentModel{}), filter)

	query = query.Order(duePaymentSort.orderBy(filter.OrderBy, filter.OrderDir, "payment_date"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var paymentModels []models.DuePaymentModel
	if err := query.Preload("Allocations").Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}
	payments := make([]ledger.DuePayment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, total, nil
}

func (r *GormDuePaymentRepository) applyFilter(query *gorm.DB, filter ledger.DuePaymentFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}
	return query
}

// ExistsForCustomer reports whether any payment references the customer
func (r *GormDuePaymentRepository) ExistsForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DuePaymentModel{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the payment row. Allocations are written with CreateAllocation.
func (r *GormDuePaymentRepository) Create(ctx context.Context, payment *ledger.DuePayment) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Create(models.DuePaymentModelFromDomain(payment)).Error
}

// CreateAllocation inserts one allocation row
func (r *GormDuePaymentRepository) CreateAllocation(ctx context.Context, allocation *ledger.DuePaymentAllocation) error {
	return r.db.WithContext(ctx).Create(models.DuePaymentAllocationModelFromDomain(allocation)).Error
}

// Save writes the editable payment columns with an optimistic version check
func (r *GormDuePaymentRepository) Save(ctx context.Context, payment *ledger.DuePayment) error {
	model := models.DuePaymentModelFromDomain(payment)
	nextVersion := payment.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.DuePaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Updates(map[string]interface{}{
			"payment_method":   model.PaymentMethod,
			"payment_date":     model.PaymentDate,
			"reference":        model.Reference,
			"note":             model.Note,
			"payment_slips":    model.PaymentSlips,
			"unapplied_amount": model.UnappliedAmount,
			"version":          nextVersion,
			"updated_at":       payment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConsistencyError("CONCURRENT_MODIFICATION", "The payment has been modified by another user")
	}
	payment.Version = nextVersion
	return nil
}

// Delete removes the payment and its allocation rows
func (r *GormDuePaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("payment_id = ?", id).Delete(&models.DuePaymentAllocationModel{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", id).Delete(&models.DuePaymentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrPaymentNotFound(id)
	}
	return nil
}
