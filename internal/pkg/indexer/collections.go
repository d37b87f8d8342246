package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

// membershipRefreshCap bounds how many already-indexed products a single
// collection event re-fetches from the source.
const membershipRefreshCap = 500

func resolveCollectionGID(event *models.WebhookEvent) (string, error) {
	if event.CollectionGID != "" {
		return event.CollectionGID, nil
	}
	if event.CollectionID != 0 {
		return shopify.CollectionGID(event.CollectionID), nil
	}
	if event.PayloadJSON != "" {
		var payload struct {
			AdminGraphqlAPIID string `json:"admin_graphql_api_id"`
			ID                int64  `json:"id"`
		}
		if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err == nil {
			if payload.AdminGraphqlAPIID != "" {
				return payload.AdminGraphqlAPIID, nil
			}
			if payload.ID != 0 {
				return shopify.CollectionGID(payload.ID), nil
			}
		}
	}
	return "", ErrNoUsableID
}

// HandleCollectionUpdate refreshes the index after a collection change.
// When the event flags a best-seller collection or a sort order change,
// the collection's product order is re-read and written back as
// best_seller_rank. Otherwise the already-indexed members are re-fetched
// from the source so their membership data self-heals.
func (ix *Indexer) HandleCollectionUpdate(ctx context.Context, event *models.WebhookEvent) error {
	gid, err := resolveCollectionGID(event)
	if err != nil {
		return err
	}
	shop, err := ix.shopCredentials(event.Shop)
	if err != nil {
		return err
	}

	if event.IsBestSellerCollection || event.SortOrderUpdated {
		return ix.recomputeBestSellerRanks(ctx, shop, gid)
	}
	return ix.refreshCollectionMembers(ctx, shop, event.CollectionID, gid)
}

// HandleCollectionDelete re-fetches every indexed product that still
// references the deleted collection; upserting the current state drops
// the stale membership entry.
func (ix *Indexer) HandleCollectionDelete(ctx context.Context, event *models.WebhookEvent) error {
	shop, err := ix.shopCredentials(event.Shop)
	if err != nil {
		return err
	}
	collectionID := event.CollectionID
	if collectionID == 0 && event.CollectionGID != "" {
		collectionID = shopify.LegacyIDFromGID(event.CollectionGID)
	}
	if collectionID == 0 {
		return ErrNoUsableID
	}
	return ix.refreshCollectionMembers(ctx, shop, collectionID, "")
}

// recomputeBestSellerRanks writes 1-based collection positions into the
// member documents. Per-product failures are logged and skipped; ranking
// is advisory, not load-bearing.
func (ix *Indexer) recomputeBestSellerRanks(ctx context.Context, shop *models.Shop, collectionGID string) error {
	gids, err := ix.admin.FetchCollectionProductGIDs(ctx, shop.Domain, shop.AccessToken, collectionGID)
	if err != nil {
		return fmt.Errorf("failed to fetch collection order: %w", err)
	}

	index := searchindex.ProductIndexName(shop.Domain)
	updated := 0
	for i, gid := range gids {
		productID := shopify.LegacyIDFromGID(gid)
		if productID == 0 {
			continue
		}
		rank := i + 1
		if err := ix.index.UpdateDocument(ctx, index, DocID(productID), map[string]interface{}{"best_seller_rank": rank}); err != nil {
			log.Warnf("[Indexer] Rank update failed for product %d in %s: %v", productID, shop.Domain, err)
			continue
		}
		updated++
	}

	log.Infof("[Indexer] Recomputed best-seller ranks for %s: %d/%d products", shop.Domain, updated, len(gids))
	return nil
}

// indexedCollectionMembers finds the product ids currently indexed with
// the given collection id.
func (ix *Indexer) indexedCollectionMembers(ctx context.Context, index string, collectionID int64) ([]int64, error) {
	res, err := ix.index.Search(ctx, index, map[string]interface{}{
		"size":    membershipRefreshCap,
		"_source": []string{"id", "gid"},
		"query": map[string]interface{}{
			"nested": map[string]interface{}{
				"path": "collections",
				"query": map[string]interface{}{
					"term": map[string]interface{}{"collections.id": collectionID},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, hit := range res.Hits {
		var src struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(hit.Source, &src); err != nil || src.ID == 0 {
			continue
		}
		ids = append(ids, src.ID)
	}
	return ids, nil
}

// refreshCollectionMembers re-upserts every indexed member of the
// collection from source state. Products deleted upstream are removed
// from the index instead. Per-product failures do not stop the sweep.
func (ix *Indexer) refreshCollectionMembers(ctx context.Context, shop *models.Shop, collectionID int64, collectionGID string) error {
	if collectionID == 0 && collectionGID != "" {
		collectionID = shopify.LegacyIDFromGID(collectionGID)
	}
	index := searchindex.ProductIndexName(shop.Domain)
	ids, err := ix.indexedCollectionMembers(ctx, index, collectionID)
	if err != nil {
		return fmt.Errorf("failed to search collection members: %w", err)
	}

	refreshed, removed := 0, 0
	for _, productID := range ids {
		err := ix.upsertProduct(ctx, shop, shopify.ProductGID(productID), false)
		if err == nil {
			refreshed++
			continue
		}
		if isProductGone(err) {
			if delErr := ix.index.DeleteDocument(ctx, index, DocID(productID)); delErr != nil {
				log.Warnf("[Indexer] Failed to drop vanished product %d from %s: %v", productID, shop.Domain, delErr)
				continue
			}
			removed++
			continue
		}
		log.Warnf("[Indexer] Membership refresh failed for product %d in %s: %v", productID, shop.Domain, err)
	}

	log.Infof("[Indexer] Collection %d refresh for %s: %d refreshed, %d removed of %d members", collectionID, shop.Domain, refreshed, removed, len(ids))
	return nil
}

func isProductGone(err error) bool {
	return errors.Is(err, shopify.ErrProductNotFound)
}
