package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/shafiq-apps/afs-staging-sub006/app/controllers"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/env"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/middleware"
)

// ApiRouter installs every HTTP route of the service. Controllers are
// injected so the router carries no package state.
type ApiRouter struct {
	webhooks *controllers.WebhookController
	sync     *controllers.SyncController
}

func NewApiRouter(webhooks *controllers.WebhookController, sync *controllers.SyncController) *ApiRouter {
	return &ApiRouter{webhooks: webhooks, sync: sync}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	v1 := api.Group("/v1")

	hmac := middleware.VerifyShopifyHmac(env.GetEnv("SHOPIFY_WEBHOOK_SECRET", ""))
	v1.Post("/webhooks", hmac, h.webhooks.HandleEnqueue)
	v1.Post("/webhooks/uninstall", hmac, h.sync.HandleUninstall)

	v1.Get("/webhooks/pending/count", h.webhooks.HandlePendingCount)
	v1.Get("/webhooks/stats", h.webhooks.HandleStats)
	v1.Get("/webhooks/:webhookId", h.webhooks.HandleStatus)

	v1.Post("/reconcile", h.sync.HandleReconcile)
	v1.Post("/reindex", h.sync.HandleReindex)

	app.Get("/health", h.sync.HandleHealth)
}
