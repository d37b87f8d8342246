package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
)

const bulkPageSize = 100

// BulkReindex walks the shop's full catalog through the shared transform
// and rewrites every product document. Progress is checkpointed per page
// so an interrupted run resumes from the last cursor. The shop's
// indexing lock is held for the duration; a second concurrent run is
// rejected. Returns the number of products synced.
func (ix *Indexer) BulkReindex(ctx context.Context, shopDomain string) (int, error) {
	shop, err := ix.shopCredentials(shopDomain)
	if err != nil {
		return 0, err
	}

	acquired, err := ix.locks.Acquire(ctx, shopDomain)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, fmt.Errorf("reindex already running for %s", shopDomain)
	}
	defer func() {
		if err := ix.locks.Release(ctx, shopDomain); err != nil {
			log.Errorf("[Indexer] Failed to release reindex lock for %s: %v", shopDomain, err)
		}
	}()

	index := searchindex.ProductIndexName(shopDomain)
	if err := ix.index.EnsureIndex(ctx, index, searchindex.ProductMapping); err != nil {
		return 0, fmt.Errorf("failed to ensure index %s: %w", index, err)
	}

	// Resume from a previous interrupted run when one exists.
	cursor := ""
	synced := 0
	if cp, err := ix.checkpoints.GetByShop(shopDomain); err == nil && cp != nil && cp.Status == models.CheckpointStatusRunning {
		cursor = cp.Cursor
		synced = cp.ProductsSynced
	}

	checkpoint := &models.IndexCheckpoint{
		Shop:           shopDomain,
		Cursor:         cursor,
		Status:         models.CheckpointStatusRunning,
		ProductsSynced: synced,
	}
	if err := ix.checkpoints.Upsert(checkpoint); err != nil {
		log.Warnf("[Indexer] Could not persist reindex checkpoint for %s: %v", shopDomain, err)
	}

	allowed := ix.allowedFields(ctx, index)

	for {
		page, err := ix.admin.FetchProductsPage(ctx, shopDomain, shop.AccessToken, cursor, bulkPageSize)
		if err != nil {
			ix.finishCheckpoint(checkpoint, models.CheckpointStatusFailed, err.Error())
			return synced, fmt.Errorf("reindex page fetch failed for %s: %w", shopDomain, err)
		}

		for i := range page.Products {
			doc := Transform(shopDomain, &page.Products[i])
			filtered, err := FilterToMapping(doc, allowed)
			if err != nil {
				log.Warnf("[Indexer] Skipping product %s during reindex: %v", doc.GID, err)
				continue
			}
			// Bulk writes skip the synchronous refresh; nobody is watching
			// per-document here.
			if err := ix.index.IndexDocument(ctx, index, DocID(doc.ID), filtered, false); err != nil {
				ix.finishCheckpoint(checkpoint, models.CheckpointStatusFailed, err.Error())
				return synced, fmt.Errorf("reindex write failed for %s: %w", shopDomain, err)
			}
			synced++
		}

		checkpoint.Cursor = page.EndCursor
		checkpoint.ProductsSynced = synced
		if err := ix.checkpoints.Upsert(checkpoint); err != nil {
			log.Warnf("[Indexer] Could not update reindex checkpoint for %s: %v", shopDomain, err)
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}

	ix.finishCheckpoint(checkpoint, models.CheckpointStatusCompleted, "")
	log.Infof("[Indexer] Bulk reindex finished for %s: %d products", shopDomain, synced)
	return synced, nil
}

func (ix *Indexer) finishCheckpoint(cp *models.IndexCheckpoint, status, lastError string) {
	now := time.Now()
	cp.Status = status
	cp.LastError = lastError
	cp.FinishedAt = &now
	if err := ix.checkpoints.Upsert(cp); err != nil {
		log.Warnf("[Indexer] Could not finalize reindex checkpoint for %s: %v", cp.Shop, err)
	}
}
