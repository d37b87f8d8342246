package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// shopRepository implements the ShopRepository interface
type shopRepository struct {
	db *gorm.DB
}

// NewShopRepository creates a new shop repository instance
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

// GetByDomain resolves a tenant's install record; nil when unknown.
func (r *shopRepository) GetByDomain(domain string) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.Where("domain = ?", domain).First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// ListActive returns all installed shops still marked active.
func (r *shopRepository) ListActive() ([]models.Shop, error) {
	var shops []models.Shop
	err := r.db.Where("active = ?", true).Order("domain ASC").Find(&shops).Error
	if err != nil {
		return nil, err
	}
	return shops, nil
}

// Create inserts a shop install record.
func (r *shopRepository) Create(shop *models.Shop) error {
	return r.db.Create(shop).Error
}

// Update saves the full shop record.
func (r *shopRepository) Update(shop *models.Shop) error {
	return r.db.Save(shop).Error
}

// MarkUninstalled deactivates a shop and stamps the uninstall time.
func (r *shopRepository) MarkUninstalled(domain string) error {
	return r.db.Model(&models.Shop{}).
		Where("domain = ?", domain).
		Updates(map[string]interface{}{
			"active":         false,
			"uninstalled_at": time.Now(),
		}).Error
}
