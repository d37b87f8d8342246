package webhookqueue

import (
	"sort"
	"sync"
	"time"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// fakeStore is an in-memory WebhookRepository used across the queue
// tests. It mirrors the semantics of the GORM implementation closely
// enough for the state machine: FIFO pending order, completed-only
// dedup and TTL purge over terminal records.
type fakeStore struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent

	createErr error
	listErr   error
	dedupErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: map[string]*models.WebhookEvent{}}
}

func (s *fakeStore) Create(event *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(id string) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *event
	return &cp, nil
}

func (s *fakeStore) GetByWebhookID(webhookID string) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events {
		if event.WebhookID == webhookID {
			cp := *event
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListPending(limit int) ([]models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var pending []models.WebhookEvent
	for _, event := range s.events {
		if event.Status == models.WebhookStatusPending {
			pending = append(pending, *event)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].ReceivedAt.Before(pending[j].ReceivedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *fakeStore) SetStatus(id string, status models.WebhookStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil
	}
	event.Status = status
	event.ErrorMsg = errMsg
	if status == models.WebhookStatusCompleted || status == models.WebhookStatusFailed {
		now := time.Now()
		event.ProcessedAt = &now
	}
	return nil
}

func (s *fakeStore) Update(event *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *fakeStore) HasCompletedDuplicate(topic, shop string, entityID int64, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedupErr != nil {
		return false, s.dedupErr
	}
	cutoff := time.Now().Add(-window)
	for _, event := range s.events {
		if event.Topic != topic || event.Shop != shop || event.Status != models.WebhookStatusCompleted {
			continue
		}
		if event.EntityID() != entityID || event.ReceivedAt.Before(cutoff) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (s *fakeStore) CountPending(shop string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, event := range s.events {
		if event.Shop == shop && event.Status == models.WebhookStatusPending {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountByStatus(shop string) (map[models.WebhookStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[models.WebhookStatus]int64{}
	for _, event := range s.events {
		if event.Shop == shop {
			counts[event.Status]++
		}
	}
	return counts, nil
}

func (s *fakeStore) PurgeOlderThan(ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	var n int64
	for id, event := range s.events {
		if !event.IsTerminal() || event.ProcessedAt == nil {
			continue
		}
		if event.ProcessedAt.Before(cutoff) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) DeleteByShop(shop string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, event := range s.events {
		if event.Shop == shop {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) get(id string) *models.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil
	}
	cp := *event
	return &cp
}
