package repository

import (
	"time"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// WebhookRepository defines the durable queue store for webhook events.
type WebhookRepository interface {
	Create(event *models.WebhookEvent) error
	GetByID(id string) (*models.WebhookEvent, error)
	GetByWebhookID(webhookID string) (*models.WebhookEvent, error)
	ListPending(limit int) ([]models.WebhookEvent, error)
	SetStatus(id string, status models.WebhookStatus, errMsg string) error
	Update(event *models.WebhookEvent) error
	HasCompletedDuplicate(topic, shop string, entityID int64, window time.Duration) (bool, error)
	CountPending(shop string) (int64, error)
	CountByStatus(shop string) (map[models.WebhookStatus]int64, error)
	PurgeOlderThan(ttl time.Duration) (int64, error)
	DeleteByShop(shop string) (int64, error)
}

// ShopRepository defines tenant credential lookups and lifecycle updates.
type ShopRepository interface {
	GetByDomain(domain string) (*models.Shop, error)
	ListActive() ([]models.Shop, error)
	Create(shop *models.Shop) error
	Update(shop *models.Shop) error
	MarkUninstalled(domain string) error
}

// FilterRepository covers the filter configuration rows this service
// touches; the admin app owns the rest of the CRUD surface.
type FilterRepository interface {
	DeleteAllByShop(shop string) (int64, error)
}

// CheckpointRepository tracks bulk reindex progress per shop.
type CheckpointRepository interface {
	GetByShop(shop string) (*models.IndexCheckpoint, error)
	Upsert(cp *models.IndexCheckpoint) error
	DeleteByShop(shop string) error
}
