package repository

import (
	"gorm.io/gorm"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// filterRepository implements the FilterRepository interface
type filterRepository struct {
	db *gorm.DB
}

// NewFilterRepository creates a new filter repository instance
func NewFilterRepository(db *gorm.DB) FilterRepository {
	return &filterRepository{db: db}
}

// DeleteAllByShop removes every filter configuration for a shop and
// returns the number of deleted rows.
func (r *filterRepository) DeleteAllByShop(shop string) (int64, error) {
	res := r.db.Where("shop = ?", shop).Delete(&models.FilterSetting{})
	return res.RowsAffected, res.Error
}
