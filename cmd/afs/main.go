package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/shafiq-apps/afs-staging-sub006/app/controllers"
	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/app/repository"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/cache"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/database"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/env"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/indexer"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/lock"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/reconcile"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/router"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/uninstall"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/webhookqueue"
)

func main() {
	app, worker := NewApplication()

	worker.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("[App] Shutting down")
		worker.Stop()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires the storage, search and queue layers into a
// ready-to-listen fiber app plus the background worker.
func NewApplication() (*fiber.App, *webhookqueue.Worker) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	index, err := searchindex.NewFromEnv()
	if err != nil {
		log.Fatalf("[App] Search index setup failed: %v", err)
	}

	factory := repository.NewFactory(database.GetDB())
	webhooks := factory.GetWebhookRepository()
	shops := factory.GetShopRepository()
	filters := factory.GetFilterRepository()
	checkpoints := factory.GetCheckpointRepository()

	admin := shopify.NewClient(shopify.Config{
		APIVersion: env.GetEnv("SHOPIFY_API_VERSION", ""),
	})
	locks := lock.NewService(cache.GetClient(), 0)

	idx := indexer.New(index, admin, shops, checkpoints, locks)
	queue := webhookqueue.NewService(
		webhooks,
		time.Duration(env.GetEnvInt("WEBHOOK_DEDUP_WINDOW_SECONDS", 60))*time.Second,
		env.GetEnvInt("WEBHOOK_MAX_RETRIES", webhookqueue.DefaultMaxRetries),
	)
	rec := reconcile.NewService(index, admin, shops)
	cleanup := uninstall.NewService(index, filters, checkpoints, webhooks, shops, locks)

	events := webhookqueue.NewRouter()
	events.Register(models.EventProductCreate, idx.HandleProductUpsert)
	events.Register(models.EventProductUpdate, idx.HandleProductUpsert)
	events.Register(models.EventProductDelete, idx.HandleProductDelete)
	events.Register(models.EventCollectionUpdate, idx.HandleCollectionUpdate)
	events.Register(models.EventCollectionDelete, idx.HandleCollectionDelete)
	events.Register(models.EventAppUninstalled, func(ctx context.Context, event *models.WebhookEvent) error {
		result := cleanup.PerformCleanup(ctx, event.Shop)
		if len(result.Errors) > 0 {
			return fmt.Errorf("cleanup for %s finished with %d errors", event.Shop, len(result.Errors))
		}
		return nil
	})

	worker := webhookqueue.NewWorker(queue, events, webhookqueue.WorkerConfig{
		PollInterval: time.Duration(env.GetEnvInt("WEBHOOK_POLL_INTERVAL_SECONDS", 5)) * time.Second,
	})

	app := fiber.New(fiber.Config{
		AppName: "afs-sync",
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.NewApiRouter(
		controllers.NewWebhookController(queue),
		controllers.NewSyncController(queue, rec, idx, index),
	))

	return app, worker
}
