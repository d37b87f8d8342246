package uninstall

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/repository"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
)

// CleanupResult reports which teardown steps succeeded. Transient; it is
// returned to the caller and logged, never stored.
type CleanupResult struct {
	Shop              string   `json:"shop"`
	IndexDeleted      bool     `json:"index_deleted"`
	FiltersDeleted    int64    `json:"filters_deleted"`
	CheckpointDeleted bool     `json:"checkpoint_deleted"`
	LockReleased      bool     `json:"lock_released"`
	AuxIndicesCleaned int      `json:"aux_indices_cleaned"`
	QueueDeleted      int64    `json:"queue_deleted"`
	ShopDeactivated   bool     `json:"shop_deactivated"`
	Errors            []string `json:"errors,omitempty"`
}

// SearchIndex is the slice of the index client cleanup needs.
type SearchIndex interface {
	DeleteIndex(ctx context.Context, index string) error
	DeleteByQuery(ctx context.Context, index string, query map[string]interface{}) (int64, error)
}

// Locker releases the tenant's indexing lock.
type Locker interface {
	Release(ctx context.Context, shop string) error
}

// Service tears down all per-tenant state when the app is uninstalled.
// Steps run in a fixed order but are isolated: one failing step is
// logged and recorded while the rest still run, maximizing cleanup under
// partial failure. Atomicity across the document store is not attempted.
type Service struct {
	index       SearchIndex
	filters     repository.FilterRepository
	checkpoints repository.CheckpointRepository
	webhooks    repository.WebhookRepository
	shops       repository.ShopRepository
	locks       Locker
}

// NewService creates an uninstall cleanup service.
func NewService(index SearchIndex, filters repository.FilterRepository, checkpoints repository.CheckpointRepository, webhooks repository.WebhookRepository, shops repository.ShopRepository, locks Locker) *Service {
	return &Service{
		index:       index,
		filters:     filters,
		checkpoints: checkpoints,
		webhooks:    webhooks,
		shops:       shops,
		locks:       locks,
	}
}

// PerformCleanup runs the teardown sequence for one shop.
func (s *Service) PerformCleanup(ctx context.Context, shop string) *CleanupResult {
	result := &CleanupResult{Shop: shop}
	fail := func(step string, err error) {
		msg := fmt.Sprintf("%s: %v", step, err)
		log.Errorf("[Uninstall] %s cleanup step failed - %s", shop, msg)
		result.Errors = append(result.Errors, msg)
	}

	// 1. Product index.
	if err := s.index.DeleteIndex(ctx, searchindex.ProductIndexName(shop)); err != nil {
		fail("delete index", err)
	} else {
		result.IndexDeleted = true
	}

	// 2. Filter configurations.
	if count, err := s.filters.DeleteAllByShop(shop); err != nil {
		fail("delete filters", err)
	} else {
		result.FiltersDeleted = count
	}

	// 3. Indexing checkpoint.
	if err := s.checkpoints.DeleteByShop(shop); err != nil {
		fail("delete checkpoint", err)
	} else {
		result.CheckpointDeleted = true
	}

	// 4. Indexing lock.
	if err := s.locks.Release(ctx, shop); err != nil {
		fail("release lock", err)
	} else {
		result.LockReleased = true
	}

	// 5. Tenant documents in the shared auxiliary indices.
	for _, aux := range searchindex.AuxiliaryIndices {
		_, err := s.index.DeleteByQuery(ctx, aux, map[string]interface{}{
			"query": map[string]interface{}{
				"term": map[string]interface{}{"shop": shop},
			},
		})
		if err != nil {
			fail(fmt.Sprintf("clean %s", aux), err)
			continue
		}
		result.AuxIndicesCleaned++
	}

	// 6. Queue records.
	if count, err := s.webhooks.DeleteByShop(shop); err != nil {
		fail("delete queue records", err)
	} else {
		result.QueueDeleted = count
	}

	// 7. Deactivate the install record last so a partial failure above
	// leaves the shop visible for a manual re-run.
	if err := s.shops.MarkUninstalled(shop); err != nil {
		fail("mark uninstalled", err)
	} else {
		result.ShopDeactivated = true
	}

	log.Infof("[Uninstall] Cleanup for %s finished: index=%t filters=%d checkpoint=%t lock=%t aux=%d queue=%d deactivated=%t errors=%d",
		shop, result.IndexDeleted, result.FiltersDeleted, result.CheckpointDeleted, result.LockReleased,
		result.AuxIndicesCleaned, result.QueueDeleted, result.ShopDeactivated, len(result.Errors))
	return result
}
