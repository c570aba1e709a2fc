package models

import "time"

// AvailabilityRule is one day of the weekly template. Weekday is 0..6,
// Monday first. StartTime and EndTime use the "15:04" layout.
type AvailabilityRule struct {
	ID      uint `gorm:"primaryKey" json:"-"`
	OwnerID uint `gorm:"uniqueIndex:idx_availability_owner_weekday;not null" json:"-"`

	Weekday   int    `gorm:"uniqueIndex:idx_availability_owner_weekday" json:"weekday"`
	Active    bool   `json:"active"`
	StartTime string `gorm:"size:5" json:"start_time"`
	EndTime   string `gorm:"size:5" json:"end_time"`

	CreatedAt time.Time `json:"-"`
}
