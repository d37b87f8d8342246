package controllers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/cache"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/database"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/indexer"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/reconcile"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/webhookqueue"
)

// SyncController exposes the uninstall, reconciliation and reindex
// routes plus the service health check.
type SyncController struct {
	queue     *webhookqueue.Service
	reconcile *reconcile.Service
	indexer   *indexer.Indexer
	index     *searchindex.Client
	validate  *validator.Validate
}

// NewSyncController creates the controller.
func NewSyncController(queue *webhookqueue.Service, rec *reconcile.Service, idx *indexer.Indexer, index *searchindex.Client) *SyncController {
	return &SyncController{
		queue:     queue,
		reconcile: rec,
		indexer:   idx,
		index:     index,
		validate:  validator.New(),
	}
}

type shopRequest struct {
	Shop string `json:"shop" validate:"required"`
}

type reconcileRequest struct {
	Shop string `json:"shop"`
}

// HandleUninstall enqueues the app/uninstalled event so the cleanup
// sequence runs through the same queue as every other webhook.
func (sc *SyncController) HandleUninstall(c *fiber.Ctx) error {
	var req shopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid JSON body",
		})
	}
	if err := sc.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "shop is required",
		})
	}

	event, err := sc.queue.Enqueue(webhookqueue.EnqueueInput{
		Topic:     models.EventAppUninstalled,
		Shop:      req.Shop,
		EventType: models.EventAppUninstalled,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to enqueue uninstall",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"message":     "Webhook queued",
		"webhookId":   event.WebhookID,
		"processedAt": time.Now(),
	})
}

// HandleReconcile audits one shop's index against the source, or every
// active shop when no shop is given.
func (sc *SyncController) HandleReconcile(c *fiber.Ctx) error {
	var req reconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid JSON body",
		})
	}

	if req.Shop != "" {
		result, err := sc.reconcile.ReconcileShop(c.Context(), req.Shop)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"results": []*reconcile.Result{result},
		})
	}

	results, err := sc.reconcile.ReconcileAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"results": results,
	})
}

// HandleReindex starts a full catalog rebuild for one shop. The walk
// runs in the background; progress lands in the shop's checkpoint row.
func (sc *SyncController) HandleReindex(c *fiber.Ctx) error {
	var req shopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid JSON body",
		})
	}
	if err := sc.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "shop is required",
		})
	}

	go func(shop string) {
		synced, err := sc.indexer.BulkReindex(context.Background(), shop)
		if err != nil {
			log.Errorf("[Sync] Reindex for %s failed after %d products: %v", shop, synced, err)
			return
		}
		log.Infof("[Sync] Reindex for %s completed, %d products synced", shop, synced)
	}(req.Shop)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Reindex started",
		"shop":    req.Shop,
	})
}

// HandleHealth probes the database, cache and search index connections.
func (sc *SyncController) HandleHealth(c *fiber.Ctx) error {
	checks := fiber.Map{
		"database": "ok",
		"cache":    "ok",
		"search":   "ok",
	}
	healthy := true

	db := database.GetDB()
	if db == nil {
		checks["database"] = "unavailable"
		healthy = false
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
		checks["database"] = "unavailable"
		healthy = false
	}

	if err := cache.Ping(); err != nil {
		checks["cache"] = "unavailable"
		healthy = false
	}

	if err := sc.index.Ping(c.Context()); err != nil {
		checks["search"] = "unavailable"
		healthy = false
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"success": healthy,
		"checks":  checks,
	})
}
