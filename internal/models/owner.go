package models

import "time"

// Owner is the calendar owner of a tenant. Every stored record is keyed by its ID.
type Owner struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	Name              string `gorm:"size:100;not null" json:"name"`
	Email             string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash      string `gorm:"size:255;not null" json:"-"`
	Slug              string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Timezone          string `gorm:"size:64" json:"timezone"`
	MinAdvanceMinutes int    `gorm:"default:120" json:"min_advance_minutes"`
	SlotMinutes       int    `gorm:"default:30" json:"slot_minutes"`
	TelegramChatID    *int64 `json:"telegram_chat_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
