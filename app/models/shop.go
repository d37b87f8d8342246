package models

import "time"

// Shop holds one merchant's install record and Admin API credentials.
// Domain is the tenant key everything else partitions on.
type Shop struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Domain        string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"domain"`
	AccessToken   string     `gorm:"type:varchar(255);not null" json:"-"`
	ApiVersion    string     `gorm:"type:varchar(20);default:'2024-07'" json:"api_version"`
	Active        bool       `gorm:"default:true;index" json:"active"`
	InstalledAt   time.Time  `gorm:"autoCreateTime" json:"installed_at"`
	UninstalledAt *time.Time `gorm:"type:timestamp;default:null" json:"uninstalled_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
