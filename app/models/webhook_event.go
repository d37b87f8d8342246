package models

import "time"

// WebhookStatus describes where a queued webhook event is in its lifecycle.
// Transitions only move forward: pending -> processing -> completed/failed,
// with a retry transition back to pending until the retry budget is spent.
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// Normalized event categories used for handler dispatch.
const (
	EventProductCreate    = "products/create"
	EventProductUpdate    = "products/update"
	EventProductDelete    = "products/delete"
	EventCollectionUpdate = "collections/update"
	EventCollectionDelete = "collections/delete"
	EventAppUninstalled   = "app/uninstalled"
)

// WebhookEvent is the durable queue record for one received webhook
// notification. The payload is stored as-received; all other columns are
// derived at enqueue time and drive dedup, routing and retry handling.
type WebhookEvent struct {
	ID          string        `gorm:"primaryKey;type:varchar(191)" json:"id"`
	WebhookID   string        `gorm:"type:varchar(64);uniqueIndex" json:"webhook_id"`
	Topic       string        `gorm:"type:varchar(100);not null;index" json:"topic"`
	Shop        string        `gorm:"type:varchar(191);not null;index" json:"shop"`
	EventType   string        `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Status      WebhookStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PayloadJSON string        `gorm:"type:longtext" json:"payload_json"`
	ReceivedAt  time.Time     `gorm:"not null;index" json:"received_at"`
	ProcessedAt *time.Time    `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	RetryCount  int           `gorm:"default:0" json:"retry_count"`
	ErrorMsg    string        `gorm:"type:text" json:"error_msg,omitempty"`

	// Entity linkage, used for dedup and handler dispatch.
	ProductID       int64  `gorm:"index" json:"product_id,omitempty"`
	ProductGID      string `gorm:"type:varchar(191)" json:"product_gid,omitempty"`
	ProductTitle    string `gorm:"type:varchar(255)" json:"product_title,omitempty"`
	ProductHandle   string `gorm:"type:varchar(255)" json:"product_handle,omitempty"`
	CollectionID    int64  `gorm:"index" json:"collection_id,omitempty"`
	CollectionGID   string `gorm:"type:varchar(191)" json:"collection_gid,omitempty"`
	CollectionTitle string `gorm:"type:varchar(255)" json:"collection_title,omitempty"`

	// Flags influencing downstream ranking side effects.
	IsBestSellerCollection bool `json:"is_best_seller_collection,omitempty"`
	SortOrderUpdated       bool `json:"sort_order_updated,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// EntityID returns whichever linkage id the event carries. Product and
// collection ids share one numeric namespace upstream, so dedup checks
// both columns against this single value.
func (e *WebhookEvent) EntityID() int64 {
	if e.ProductID != 0 {
		return e.ProductID
	}
	return e.CollectionID
}

// IsTerminal reports whether the event reached a final state.
func (e *WebhookEvent) IsTerminal() bool {
	return e.Status == WebhookStatusCompleted || e.Status == WebhookStatusFailed
}

// MarkProcessing moves the event into the in-flight state.
func (e *WebhookEvent) MarkProcessing() {
	e.Status = WebhookStatusProcessing
}

// MarkCompleted finalizes the event successfully and stamps ProcessedAt.
func (e *WebhookEvent) MarkCompleted() {
	now := time.Now()
	e.Status = WebhookStatusCompleted
	e.ProcessedAt = &now
	e.ErrorMsg = ""
}

// MarkFailed finalizes the event after the retry budget is exhausted.
func (e *WebhookEvent) MarkFailed(errMsg string) {
	now := time.Now()
	e.Status = WebhookStatusFailed
	e.ProcessedAt = &now
	e.ErrorMsg = errMsg
}

// MarkRetry returns the event to the pending pool with an incremented
// attempt counter; ProcessedAt records the retry-marking transition.
func (e *WebhookEvent) MarkRetry(errMsg string) {
	now := time.Now()
	e.Status = WebhookStatusPending
	e.ProcessedAt = &now
	e.RetryCount++
	e.ErrorMsg = errMsg
}
