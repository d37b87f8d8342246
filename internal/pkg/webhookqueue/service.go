package webhookqueue

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/app/repository"
)

const (
	// DefaultMaxRetries bounds automatic reprocessing attempts per event.
	DefaultMaxRetries = 3
	// DefaultDedupWindow is the trailing span within which a repeated
	// notification for the same entity is suppressed.
	DefaultDedupWindow = time.Minute
	// DefaultEventTTL is how long terminal records are kept before the
	// purge sweep removes them.
	DefaultEventTTL = 30 * 24 * time.Hour
)

// ErrMissingFields rejects enqueue calls without the required fields.
var ErrMissingFields = errors.New("topic, shop and eventType are required")

// EnqueueInput is one inbound webhook notification.
type EnqueueInput struct {
	Topic      string
	Shop       string
	EventType  string
	Payload    string
	ReceivedAt time.Time

	ProductID       int64
	ProductGID      string
	ProductTitle    string
	ProductHandle   string
	CollectionID    int64
	CollectionGID   string
	CollectionTitle string

	IsBestSellerCollection bool
	SortOrderUpdated       bool
}

// Service owns the queue semantics on top of the durable store: enqueue
// validation, the dedup gate and the retry policy. All dependencies are
// injected; the service holds no ambient state.
type Service struct {
	store       repository.WebhookRepository
	dedupWindow time.Duration
	maxRetries  int
}

// NewService creates a queue service. Non-positive window/retries fall
// back to the defaults.
func NewService(store repository.WebhookRepository, dedupWindow time.Duration, maxRetries int) *Service {
	if dedupWindow <= 0 {
		dedupWindow = DefaultDedupWindow
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Service{store: store, dedupWindow: dedupWindow, maxRetries: maxRetries}
}

// MaxRetries exposes the configured retry budget.
func (s *Service) MaxRetries() int { return s.maxRetries }

// Store exposes the underlying repository for read-side queries.
func (s *Service) Store() repository.WebhookRepository { return s.store }

// Enqueue validates and persists a new pending event. The returned
// record carries a fresh correlation id distinct from the storage id.
func (s *Service) Enqueue(input EnqueueInput) (*models.WebhookEvent, error) {
	if input.Topic == "" || input.Shop == "" || input.EventType == "" {
		return nil, ErrMissingFields
	}

	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	event := &models.WebhookEvent{
		ID:                     fmt.Sprintf("%s:%s:%s", input.Shop, input.Topic, uuid.New().String()),
		WebhookID:              uuid.New().String(),
		Topic:                  input.Topic,
		Shop:                   input.Shop,
		EventType:              input.EventType,
		Status:                 models.WebhookStatusPending,
		PayloadJSON:            input.Payload,
		ReceivedAt:             receivedAt,
		RetryCount:             0,
		ProductID:              input.ProductID,
		ProductGID:             input.ProductGID,
		ProductTitle:           input.ProductTitle,
		ProductHandle:          input.ProductHandle,
		CollectionID:           input.CollectionID,
		CollectionGID:          input.CollectionGID,
		CollectionTitle:        input.CollectionTitle,
		IsBestSellerCollection: input.IsBestSellerCollection,
		SortOrderUpdated:       input.SortOrderUpdated,
	}

	if err := s.store.Create(event); err != nil {
		return nil, fmt.Errorf("failed to enqueue webhook: %w", err)
	}
	return event, nil
}

// IsDuplicate reports whether a completed event for the same topic, shop
// and entity landed inside the dedup window. The check fails open: on
// store errors it reports not-a-duplicate, preferring a reprocess over
// silently dropping a legitimate event.
func (s *Service) IsDuplicate(topic, shop string, entityID int64) bool {
	if entityID == 0 {
		return false
	}
	dup, err := s.store.HasCompletedDuplicate(topic, shop, entityID, s.dedupWindow)
	if err != nil {
		log.Errorf("[WebhookQueue] Dedup check failed for %s/%s: %v", shop, topic, err)
		return false
	}
	return dup
}

// Retry re-queues a failed event or finalizes it once the retry budget
// is spent. Returns whether the event went back to pending. An absent
// record returns false without error.
func (s *Service) Retry(id, errMsg string) (bool, error) {
	event, err := s.store.GetByID(id)
	if err != nil {
		return false, fmt.Errorf("failed to load event %s: %w", id, err)
	}
	if event == nil {
		return false, nil
	}

	if event.RetryCount+1 > s.maxRetries {
		event.MarkFailed(errMsg)
		if err := s.store.Update(event); err != nil {
			return false, fmt.Errorf("failed to mark event %s failed: %w", id, err)
		}
		log.Errorf("[WebhookQueue] Event %s permanently failed after %d retries: %s", id, event.RetryCount, errMsg)
		return false, nil
	}

	event.MarkRetry(errMsg)
	if err := s.store.Update(event); err != nil {
		return false, fmt.Errorf("failed to re-queue event %s: %w", id, err)
	}
	log.Warnf("[WebhookQueue] Event %s re-queued (attempt %d/%d): %s", id, event.RetryCount, s.maxRetries, errMsg)
	return true, nil
}
