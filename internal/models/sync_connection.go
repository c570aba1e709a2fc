package models

import "time"

// SyncConnection holds the OAuth token and the sync cursor of one external
// calendar connection. There is at most one row per owner and provider.
type SyncConnection struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	OwnerID  uint   `gorm:"uniqueIndex:idx_sync_owner_provider;not null" json:"owner_id"`
	Provider string `gorm:"uniqueIndex:idx_sync_owner_provider;size:20;not null" json:"provider"`

	Connected    bool      `json:"connected"`
	CalendarID   string    `gorm:"size:255" json:"calendar_id"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	TokenType    string    `gorm:"size:20" json:"-"`
	TokenExpiry  time.Time `json:"-"`

	LastSyncAt  *time.Time `json:"last_sync_at"`
	LastCreated int        `json:"last_created"`
	LastUpdated int        `json:"last_updated"`
	LastSkipped int        `json:"last_skipped"`
	LastErrors  int        `json:"last_errors"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
