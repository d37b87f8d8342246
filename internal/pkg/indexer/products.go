package indexer

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

// HandleProductUpsert processes products/create and products/update
// events. The webhook payload is never trusted as the document source;
// the full current product state is fetched from the Admin API so the
// indexed document reflects variants, options and collection membership
// as they are now, not as a possibly-stale delta.
func (ix *Indexer) HandleProductUpsert(ctx context.Context, event *models.WebhookEvent) error {
	gid, err := resolveProductGID(event)
	if err != nil {
		return err
	}

	shop, err := ix.shopCredentials(event.Shop)
	if err != nil {
		return err
	}

	// Synchronous refresh: a merchant may check the storefront right
	// after saving a product.
	if err := ix.upsertProduct(ctx, shop, gid, true); err != nil {
		return err
	}

	log.Infof("[Indexer] Upserted product %s for %s", gid, event.Shop)
	return nil
}

// HandleProductDelete removes the product document. A document that is
// already gone counts as success; deletes are idempotent.
func (ix *Indexer) HandleProductDelete(ctx context.Context, event *models.WebhookEvent) error {
	productID := event.ProductID
	if productID == 0 && event.ProductGID != "" {
		productID = shopify.LegacyIDFromGID(event.ProductGID)
	}
	if productID == 0 && event.PayloadJSON != "" {
		var payload struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err == nil {
			productID = payload.ID
		}
	}
	if productID == 0 {
		return ErrNoUsableID
	}

	index := searchindex.ProductIndexName(event.Shop)
	if err := ix.index.DeleteDocument(ctx, index, DocID(productID)); err != nil {
		return err
	}

	log.Infof("[Indexer] Deleted product %d from %s", productID, event.Shop)
	return nil
}
