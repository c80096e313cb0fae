package persistence

import (
	"context"
	"errors"
	"sort"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements ledger.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an order by ID and locks its row
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormOrderRepository) findOne(query *gorm.DB, id uuid.UUID) (*ledger.Order, error) {
	var model models.OrderModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrOrderNotFound(id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// LockByIDs locks the given orders in ascending id order, so two payments
// touching overlapping orders always queue instead of deadlocking.
func (r *GormOrderRepository) LockByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*ledger.Order, error) {
	result := make(map[uuid.UUID]*ledger.Order, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	for i := range orderModels {
		result[orderModels[i].ID] = orderModels[i].ToDomain()
	}
	for _, id := range sorted {
		if _, ok := result[id]; !ok {
			return nil, ledger.ErrOrderNotFound(id)
		}
	}
	return result, nil
}

// FindOpenByCustomer returns the customer's due and partial orders, oldest first
func (r *GormOrderRepository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]ledger.Order, error) {
	return r.findOpen(r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("LENGTH(order_number) ASC").
		Order("order_number ASC"), customerID)
}

// FindOpenByCustomerForUpdate locks the customer's open orders in ascending id
// order, the same order LockByIDs takes. Callers sort for FIFO themselves.
func (r *GormOrderRepository) FindOpenByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) ([]ledger.Order, error) {
	return r.findOpen(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("id ASC"), customerID)
}

func (r *GormOrderRepository) findOpen(query *gorm.DB, customerID uuid.UUID) ([]ledger.Order, error) {
	var orderModels []models.OrderModel
	if err := query.
		Where("customer_id = ? AND payment_status IN ?", customerID, ledger.OpenPaymentStatuses()).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]ledger.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// ExistsForCustomer reports whether any order references the customer
func (r *GormOrderRepository) ExistsForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("customer_id = ?", customerID).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new order
func (r *GormOrderRepository) Create(ctx context.Context, order *ledger.Order) error {
	return r.db.WithContext(ctx).Create(models.OrderModelFromDomain(order)).Error
}

// Save writes the mutable order columns with an optimistic version check
func (r *GormOrderRepository) Save(ctx context.Context, order *ledger.Order) error {
	model := models.OrderModelFromDomain(order)
	nextVersion := order.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"subtotal":       model.Subtotal,
			"discount":       model.Discount,
			"total":          model.Total,
			"paid_amount":    model.PaidAmount,
			"due_amount":     model.DueAmount,
			"payment_status": model.PaymentStatus,
			"version":        nextVersion,
			"updated_at":     order.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConsistencyError("CONCURRENT_MODIFICATION", "The order has been modified by another user")
	}
	order.Version = nextVersion
	return nil
}
