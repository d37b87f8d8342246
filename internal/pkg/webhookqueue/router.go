package webhookqueue

import (
	"context"
	"sync"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
)

// Handler processes one queued event.
type Handler func(ctx context.Context, event *models.WebhookEvent) error

// Router dispatches events to handlers by eventType. Handlers are
// registered explicitly at bootstrap; adding a topic is a Register call,
// not an edit to a switch statement.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter creates an empty dispatch table.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds a handler to an eventType, replacing any previous one.
func (r *Router) Register(eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = h
}

// Handler looks up the handler for an eventType.
func (r *Router) Handler(eventType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[eventType]
	return h, ok
}

// Topics returns the registered eventTypes.
func (r *Router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	return topics
}
