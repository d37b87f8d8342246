package models

import "time"

// FilterSetting is one storefront filter configuration row for a shop.
// The admin app owns create/update; this service only reads counts and
// deletes everything for a tenant during uninstall cleanup.
type FilterSetting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Shop        string    `gorm:"type:varchar(191);not null;index" json:"shop"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	FilterType  string    `gorm:"type:varchar(50);not null" json:"filter_type"`
	Field       string    `gorm:"type:varchar(100);not null" json:"field"`
	Position    int       `gorm:"default:0" json:"position"`
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	OptionsJSON string    `gorm:"type:longtext" json:"options_json"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
