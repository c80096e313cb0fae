package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderCounterRepository implements ledger.OrderCounterRepository on a locked counter row
type GormOrderCounterRepository struct {
	db *gorm.DB
}

// NewGormOrderCounterRepository creates a new GormOrderCounterRepository
func NewGormOrderCounterRepository(db *gorm.DB) *GormOrderCounterRepository {
	return &GormOrderCounterRepository{db: db}
}

// Next inserts the counter at zero if it is missing, locks it, and advances it by one.
// The lock is held until the caller's transaction ends, so the order that
// consumes the number commits or rolls back together with the increment.
func (r *GormOrderCounterRepository) Next(ctx context.Context, name string) (int64, error) {
	db := r.db.WithContext(ctx)
	now := time.Now()

	if err := db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.OrderCounterModel{Name: name, Value: 0, UpdatedAt: now}).Error; err != nil {
		return 0, err
	}

	var model models.OrderCounterModel
	if err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "name = ?", name).Error; err != nil {
		return 0, err
	}

	counter := model.ToDomain()
	value := counter.Advance()
	if err := db.
		Model(&models.OrderCounterModel{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{
			"value":      value,
			"updated_at": now,
		}).Error; err != nil {
		return 0, err
	}
	return value, nil
}
