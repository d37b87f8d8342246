package models

import "time"

// Checkpoint states for a bulk reindex run.
const (
	CheckpointStatusRunning   = "running"
	CheckpointStatusCompleted = "completed"
	CheckpointStatusFailed    = "failed"
)

// IndexCheckpoint tracks bulk reindex progress for one shop so an
// interrupted run can resume from the last page cursor.
type IndexCheckpoint struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Shop           string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"shop"`
	Cursor         string     `gorm:"type:varchar(255)" json:"cursor"`
	Status         string     `gorm:"type:varchar(20);default:'running'" json:"status"`
	ProductsSynced int        `gorm:"default:0" json:"products_synced"`
	LastError      string     `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt      time.Time  `gorm:"autoCreateTime" json:"started_at"`
	FinishedAt     *time.Time `gorm:"type:timestamp;default:null" json:"finished_at,omitempty"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
