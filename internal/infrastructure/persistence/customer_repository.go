package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements ledger.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrCustomerNotFound(id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindFirstByNameAndPhone returns the earliest customer with this exact name and phone
func (r *GormCustomerRepository) FindFirstByNameAndPhone(ctx context.Context, name, phone string) (*ledger.Customer, error) {
	return r.findFirst(r.db.WithContext(ctx).Where("name = ? AND phone = ?", name, phone))
}

// FindFirstByName returns the earliest customer with this exact name
func (r *GormCustomerRepository) FindFirstByName(ctx context.Context, name string) (*ledger.Customer, error) {
	return r.findFirst(r.db.WithContext(ctx).Where("name = ?", name))
}

func (r *GormCustomerRepository) findFirst(query *gorm.DB) (*ledger.Customer, error) {
	var found []models.CustomerModel
	if err := query.Order("created_at ASC").Order("id ASC").Limit(1).Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0].ToDomain(), nil
}

// Exists reports whether a customer row exists
func (r *GormCustomerRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new customer
func (r *GormCustomerRepository) Create(ctx context.Context, customer *ledger.Customer) error {
	return r.db.WithContext(ctx).Create(models.CustomerModelFromDomain(customer)).Error
}
