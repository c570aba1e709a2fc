package models

import "time"

type Booking struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	OwnerID uint   `gorm:"index:idx_bookings_owner_slot;not null" json:"owner_id"`

	SlotStart time.Time `gorm:"index:idx_bookings_owner_slot;not null" json:"slot_start"`
	SlotEnd   time.Time `gorm:"not null" json:"slot_end"`

	ProspectName    string `gorm:"size:100;not null" json:"prospect_name"`
	ProspectEmail   string `gorm:"size:100;not null" json:"prospect_email"`
	ProspectCompany string `gorm:"size:150" json:"prospect_company"`
	Notes           string `gorm:"size:500" json:"notes"`

	State string `gorm:"size:20;not null;default:'confirmed'" json:"stato"`

	MeetingLink      *string `gorm:"size:255" json:"meeting_link,omitempty"`
	MeetingLinkError string  `gorm:"size:255" json:"meeting_link_error,omitempty"`
	CalendarEventID  *string `gorm:"size:36" json:"calendar_event_id,omitempty"`

	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
