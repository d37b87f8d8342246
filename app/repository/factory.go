package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository instances.
type Repositories struct {
	Webhook    WebhookRepository
	Shop       ShopRepository
	Filter     FilterRepository
	Checkpoint CheckpointRepository
}

// NewRepositories creates all repositories backed by the given database.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Webhook:    NewWebhookRepository(db),
		Shop:       NewShopRepository(db),
		Filter:     NewFilterRepository(db),
		Checkpoint: NewCheckpointRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetWebhookRepository returns the webhook queue repository instance
func (f *Factory) GetWebhookRepository() WebhookRepository {
	return f.GetRepositories().Webhook
}

// GetShopRepository returns the shop repository instance
func (f *Factory) GetShopRepository() ShopRepository {
	return f.GetRepositories().Shop
}

// GetFilterRepository returns the filter repository instance
func (f *Factory) GetFilterRepository() FilterRepository {
	return f.GetRepositories().Filter
}

// GetCheckpointRepository returns the checkpoint repository instance
func (f *Factory) GetCheckpointRepository() CheckpointRepository {
	return f.GetRepositories().Checkpoint
}
