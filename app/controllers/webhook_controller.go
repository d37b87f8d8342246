package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/webhookqueue"
)

// WebhookController exposes the webhook ingress and queue query routes.
type WebhookController struct {
	queue    *webhookqueue.Service
	validate *validator.Validate
}

// NewWebhookController creates the controller.
func NewWebhookController(queue *webhookqueue.Service) *WebhookController {
	return &WebhookController{
		queue:    queue,
		validate: validator.New(),
	}
}

type enqueueRequest struct {
	Topic      string          `json:"topic" validate:"required"`
	Shop       string          `json:"shop" validate:"required"`
	EventType  string          `json:"eventType" validate:"required"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt *time.Time      `json:"receivedAt"`

	ProductID       int64  `json:"productId"`
	ProductGID      string `json:"productGid"`
	ProductTitle    string `json:"productTitle"`
	ProductHandle   string `json:"productHandle"`
	CollectionID    int64  `json:"collectionId"`
	CollectionGID   string `json:"collectionGid"`
	CollectionTitle string `json:"collectionTitle"`

	IsBestSellerCollection bool `json:"isBestSellerCollection"`
	SortOrderUpdated       bool `json:"sortOrderUpdated"`
}

func (r *enqueueRequest) entityID() int64 {
	if r.ProductID != 0 {
		return r.ProductID
	}
	return r.CollectionID
}

// HandleEnqueue accepts one webhook notification into the queue. A
// repeat delivery inside the dedup window is acknowledged without
// creating a second record.
func (wc *WebhookController) HandleEnqueue(c *fiber.Ctx) error {
	var req enqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid JSON body",
		})
	}
	if err := wc.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "topic, shop and eventType are required",
		})
	}

	if wc.queue.IsDuplicate(req.Topic, req.Shop, req.entityID()) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
			"message": "Duplicate webhook ignored",
		})
	}

	input := webhookqueue.EnqueueInput{
		Topic:                  req.Topic,
		Shop:                   req.Shop,
		EventType:              req.EventType,
		Payload:                string(req.Payload),
		ProductID:              req.ProductID,
		ProductGID:             req.ProductGID,
		ProductTitle:           req.ProductTitle,
		ProductHandle:          req.ProductHandle,
		CollectionID:           req.CollectionID,
		CollectionGID:          req.CollectionGID,
		CollectionTitle:        req.CollectionTitle,
		IsBestSellerCollection: req.IsBestSellerCollection,
		SortOrderUpdated:       req.SortOrderUpdated,
	}
	if req.ReceivedAt != nil {
		input.ReceivedAt = *req.ReceivedAt
	}

	event, err := wc.queue.Enqueue(input)
	if err != nil {
		if errors.Is(err, webhookqueue.ErrMissingFields) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to enqueue webhook",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"message":     "Webhook queued",
		"webhookId":   event.WebhookID,
		"processedAt": time.Now(),
	})
}

// HandleStatus returns the stored record's public fields by webhookId.
func (wc *WebhookController) HandleStatus(c *fiber.Ctx) error {
	webhookID := c.Params("webhookId")
	if webhookID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "webhookId missing",
		})
	}

	event, err := wc.queue.Store().GetByWebhookID(webhookID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to load webhook",
		})
	}
	if event == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"webhook": nil,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"webhook": fiber.Map{
			"webhookId":   event.WebhookID,
			"topic":       event.Topic,
			"shop":        event.Shop,
			"eventType":   event.EventType,
			"status":      event.Status,
			"retryCount":  event.RetryCount,
			"error":       event.ErrorMsg,
			"receivedAt":  event.ReceivedAt,
			"processedAt": event.ProcessedAt,
		},
	})
}

// HandlePendingCount returns the pending backlog size for one shop.
func (wc *WebhookController) HandlePendingCount(c *fiber.Ctx) error {
	shop := c.Query("shop")
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "shop query parameter is required",
		})
	}

	count, err := wc.queue.Store().CountPending(shop)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to count pending webhooks",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"shop":    shop,
		"pending": count,
	})
}

// HandleStats returns per-status queue counts for one shop.
func (wc *WebhookController) HandleStats(c *fiber.Ctx) error {
	shop := c.Query("shop")
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "shop query parameter is required",
		})
	}

	counts, err := wc.queue.Store().CountByStatus(shop)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to load queue stats",
		})
	}

	stats := fiber.Map{}
	for _, status := range []models.WebhookStatus{
		models.WebhookStatusPending,
		models.WebhookStatusProcessing,
		models.WebhookStatusCompleted,
		models.WebhookStatusFailed,
	} {
		stats[string(status)] = counts[status]
	}

	return c.JSON(fiber.Map{
		"success": true,
		"shop":    shop,
		"stats":   stats,
	})
}
