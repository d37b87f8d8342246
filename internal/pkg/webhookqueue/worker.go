package webhookqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// WorkerConfig tunes the polling scheduler. Zero values use defaults.
type WorkerConfig struct {
	PollInterval  time.Duration // default 5s
	PurgeInterval time.Duration // default 24h
	EventTTL      time.Duration // default 30 days
	BatchSize     int           // default 10
	Concurrency   int           // default 3
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = 24 * time.Hour
	}
	if c.EventTTL <= 0 {
		c.EventTTL = DefaultEventTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	return c
}

// Worker is the single-process polling scheduler: on each tick it pulls
// a batch of pending events and runs them through the router in bounded
// concurrency groups. A busy flag skips ticks that fire while a previous
// batch is still draining, so one process never runs two batches at
// once. The flag is process-local; replicas polling the same store can
// still claim overlapping records, which handler idempotence absorbs.
type Worker struct {
	service *Service
	router  *Router
	cfg     WorkerConfig

	busy       atomic.Bool
	pollTicker *time.Ticker
	purgeTick  *time.Ticker
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewWorker creates a worker bound to the given service and router.
func NewWorker(service *Service, router *Router, cfg WorkerConfig) *Worker {
	return &Worker{
		service: service,
		router:  router,
		cfg:     cfg.withDefaults(),
	}
}

// Start launches the poll and purge loops. Safe to call once per Stop.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.stopCh = make(chan struct{})
	w.running = true

	log.Infof("[WebhookWorker] Starting (poll=%s, batch=%d, concurrency=%d)", w.cfg.PollInterval, w.cfg.BatchSize, w.cfg.Concurrency)

	w.pollTicker = time.NewTicker(w.cfg.PollInterval)
	w.wg.Add(1)
	go w.pollLoop()

	w.purgeTick = time.NewTicker(w.cfg.PurgeInterval)
	w.wg.Add(1)
	go w.purgeLoop()
}

// Stop halts the loops and waits for the in-flight batch to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	log.Info("[WebhookWorker] Stopping...")
	w.pollTicker.Stop()
	w.purgeTick.Stop()
	close(w.stopCh)
	w.running = false
	w.wg.Wait()
	log.Info("[WebhookWorker] Stopped")
}

// IsRunning reports whether the worker loops are active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) pollLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case <-w.pollTicker.C:
			w.ProcessBatch(context.Background())
		}
	}
}

func (w *Worker) purgeLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case <-w.purgeTick.C:
			w.purgeExpired()
		}
	}
}

// purgeExpired deletes terminal records older than the TTL. Pending and
// processing records are never touched regardless of age.
func (w *Worker) purgeExpired() int64 {
	count, err := w.service.Store().PurgeOlderThan(w.cfg.EventTTL)
	if err != nil {
		log.Errorf("[WebhookWorker] Purge sweep failed: %v", err)
		return 0
	}
	if count > 0 {
		log.Infof("[WebhookWorker] Purged %d terminal events older than %s", count, w.cfg.EventTTL)
	}
	return count
}

// ProcessBatch runs one poll cycle: fetch up to BatchSize pending events
// and execute them in groups of Concurrency, waiting for each group
// before starting the next. A tick arriving while a batch is in flight
// is a no-op. Returns the number of events handled.
func (w *Worker) ProcessBatch(ctx context.Context) int {
	if !w.busy.CompareAndSwap(false, true) {
		return 0
	}
	defer w.busy.Store(false)

	events, err := w.service.Store().ListPending(w.cfg.BatchSize)
	if err != nil {
		log.Errorf("[WebhookWorker] Failed to list pending events: %v", err)
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	processed := 0
	for start := 0; start < len(events); start += w.cfg.Concurrency {
		end := start + w.cfg.Concurrency
		if end > len(events) {
			end = len(events)
		}
		group := events[start:end]

		var wg sync.WaitGroup
		for i := range group {
			wg.Add(1)
			go func(event models.WebhookEvent) {
				defer wg.Done()
				// Each event captures its own failure; a panic or error in
				// one handler never aborts its siblings.
				defer func() {
					if r := recover(); r != nil {
						log.Errorf("[WebhookWorker] Handler panic for %s: %v", event.ID, r)
						if _, err := w.service.Retry(event.ID, "handler panic"); err != nil {
							log.Errorf("[WebhookWorker] Retry bookkeeping failed for %s: %v", event.ID, err)
						}
					}
				}()
				w.processEvent(ctx, &event)
			}(group[i])
		}
		wg.Wait()
		processed += len(group)
	}
	return processed
}

// processEvent walks one event through the state machine:
// pending -> processing -> completed | pending(retry) | failed.
func (w *Worker) processEvent(ctx context.Context, event *models.WebhookEvent) {
	store := w.service.Store()

	// Dedup gate: a completed twin inside the window means this delivery
	// is a repeat and can complete vacuously.
	if w.service.IsDuplicate(event.Topic, event.Shop, event.EntityID()) {
		log.Infof("[WebhookWorker] Duplicate event %s (%s) ignored", event.ID, event.EventType)
		if err := store.SetStatus(event.ID, models.WebhookStatusCompleted, "duplicate webhook ignored"); err != nil {
			log.Errorf("[WebhookWorker] Failed to complete duplicate %s: %v", event.ID, err)
		}
		return
	}

	if err := store.SetStatus(event.ID, models.WebhookStatusProcessing, ""); err != nil {
		log.Errorf("[WebhookWorker] Failed to mark %s processing: %v", event.ID, err)
		return
	}

	handler, ok := w.router.Handler(event.EventType)
	if !ok {
		// Unknown topics are forward-compatible noise, not failures.
		log.Warnf("[WebhookWorker] No handler for event type %q, completing %s", event.EventType, event.ID)
		if err := store.SetStatus(event.ID, models.WebhookStatusCompleted, ""); err != nil {
			log.Errorf("[WebhookWorker] Failed to complete %s: %v", event.ID, err)
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		log.Errorf("[WebhookWorker] Event %s (%s) failed: %v", event.ID, event.EventType, err)
		if _, retryErr := w.service.Retry(event.ID, err.Error()); retryErr != nil {
			log.Errorf("[WebhookWorker] Retry bookkeeping failed for %s: %v", event.ID, retryErr)
		}
		return
	}

	if err := store.SetStatus(event.ID, models.WebhookStatusCompleted, ""); err != nil {
		log.Errorf("[WebhookWorker] Failed to complete %s: %v", event.ID, err)
		return
	}
	log.Infof("[WebhookWorker] Event %s (%s) completed", event.ID, event.EventType)
}
