package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// checkpointRepository implements the CheckpointRepository interface
type checkpointRepository struct {
	db *gorm.DB
}

// NewCheckpointRepository creates a new checkpoint repository instance
func NewCheckpointRepository(db *gorm.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

// GetByShop returns a shop's reindex checkpoint; nil when none exists.
func (r *checkpointRepository) GetByShop(shop string) (*models.IndexCheckpoint, error) {
	var cp models.IndexCheckpoint
	err := r.db.Where("shop = ?", shop).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Upsert creates or updates the shop's checkpoint row.
func (r *checkpointRepository) Upsert(cp *models.IndexCheckpoint) error {
	existing, err := r.GetByShop(cp.Shop)
	if err != nil {
		return err
	}
	if existing != nil {
		cp.ID = existing.ID
		cp.StartedAt = existing.StartedAt
	}
	return r.db.Save(cp).Error
}

// DeleteByShop removes the shop's checkpoint row.
func (r *checkpointRepository) DeleteByShop(shop string) error {
	return r.db.Where("shop = ?", shop).Delete(&models.IndexCheckpoint{}).Error
}
