package models

import "time"

type CalendarEvent struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	OwnerID uint   `gorm:"index:idx_events_owner_start;not null" json:"owner_id"`

	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"size:20;not null" json:"type"`
	Color       string `gorm:"size:20" json:"color"`

	Start  time.Time `gorm:"column:starts_at;index:idx_events_owner_start;not null" json:"start"`
	End    time.Time `gorm:"column:ends_at;not null" json:"end"`
	AllDay bool      `json:"all_day"`

	LeadRef     *string `gorm:"size:64" json:"lead_ref,omitempty"`
	ClubRef     *string `gorm:"size:64" json:"club_ref,omitempty"`
	MeetingLink *string `gorm:"size:255" json:"meeting_link,omitempty"`

	ExternalID   *string `gorm:"size:255" json:"external_id,omitempty"`
	ExternalETag *string `gorm:"size:255" json:"external_etag,omitempty"`

	// Revision grows on every local edit; SyncedRevision is the revision
	// last pushed to the provider.
	Revision       int `gorm:"not null;default:1" json:"revision"`
	SyncedRevision int `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *CalendarEvent) HasExternal() bool {
	return e.ExternalID != nil && *e.ExternalID != ""
}

func (e *CalendarEvent) Dirty() bool {
	return e.Revision != e.SyncedRevision
}
