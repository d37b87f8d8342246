package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// webhookRepository implements the WebhookRepository interface
type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository instance
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

// Create persists a new queue record.
func (r *webhookRepository) Create(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

// GetByID retrieves an event by its storage id. Not-found is translated
// to nil so callers can use truthiness checks instead of error matching.
func (r *webhookRepository) GetByID(id string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByWebhookID retrieves an event by its external correlation id.
func (r *webhookRepository) GetByWebhookID(webhookID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("webhook_id = ?", webhookID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListPending returns up to limit pending events, oldest received first
// so a backlog never starves old events.
func (r *webhookRepository) ListPending(limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.
		Where("status = ?", models.WebhookStatusPending).
		Order("received_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// SetStatus transitions an event's status, stamps ProcessedAt and
// overwrites the error message. Passing an empty errMsg clears any
// error left by an earlier retry, so a record that eventually succeeds
// never keeps a stale error string.
func (r *webhookRepository) SetStatus(id string, status models.WebhookStatus, errMsg string) error {
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": time.Now(),
		"error_msg":    errMsg,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// Update saves the full record.
func (r *webhookRepository) Update(event *models.WebhookEvent) error {
	return r.db.Save(event).Error
}

// HasCompletedDuplicate reports whether a completed event with the same
// topic and shop carries the given entity id (product or collection
// column, the upstream id namespace is shared) inside the trailing window.
func (r *webhookRepository) HasCompletedDuplicate(topic, shop string, entityID int64, window time.Duration) (bool, error) {
	if entityID == 0 {
		return false, nil
	}
	cutoff := time.Now().Add(-window)
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).
		Where("topic = ? AND shop = ? AND status = ?", topic, shop, models.WebhookStatusCompleted).
		Where("received_at >= ?", cutoff).
		Where("product_id = ? OR collection_id = ?", entityID, entityID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountPending returns the pending backlog size for one shop.
func (r *webhookRepository) CountPending(shop string) (int64, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).
		Where("shop = ? AND status = ?", shop, models.WebhookStatusPending).
		Count(&count).Error
	return count, err
}

// CountByStatus returns per-status counts for one shop.
func (r *webhookRepository) CountByStatus(shop string) (map[models.WebhookStatus]int64, error) {
	type row struct {
		Status models.WebhookStatus
		Total  int64
	}
	var rows []row
	err := r.db.Model(&models.WebhookEvent{}).
		Select("status, COUNT(*) as total").
		Where("shop = ?", shop).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.WebhookStatus]int64, len(rows))
	for _, rr := range rows {
		counts[rr.Status] = rr.Total
	}
	return counts, nil
}

// PurgeOlderThan deletes terminal records whose ProcessedAt predates the
// cutoff and returns how many were removed.
func (r *webhookRepository) PurgeOlderThan(ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	res := r.db.
		Where("status IN ?", []models.WebhookStatus{models.WebhookStatusCompleted, models.WebhookStatusFailed}).
		Where("processed_at IS NOT NULL AND processed_at < ?", cutoff).
		Delete(&models.WebhookEvent{})
	return res.RowsAffected, res.Error
}

// DeleteByShop removes all of a tenant's queue records (uninstall).
func (r *webhookRepository) DeleteByShop(shop string) (int64, error) {
	res := r.db.Where("shop = ?", shop).Delete(&models.WebhookEvent{})
	return res.RowsAffected, res.Error
}
