package dto

import "time"

// --------- Events ---------

type EventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Color       string    `json:"color"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	AllDay      bool      `json:"all_day"`
	LeadRef     *string   `json:"lead_ref"`
	ClubRef     *string   `json:"club_ref"`
	MeetingLink *string   `json:"meeting_link"`
}

// --------- Availability ---------

type AvailabilitySlot struct {
	Weekday   *int   `json:"weekday" binding:"required,min=0,max=6"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

type AvailabilityRequest struct {
	Slots []AvailabilitySlot `json:"slots" binding:"dive"`
}

// --------- Bookings ---------

type BookingStateRequest struct {
	Stato string `json:"stato" binding:"required"`
}

type PublicBookingRequest struct {
	Start           time.Time `json:"start" binding:"required"`
	End             time.Time `json:"end" binding:"required"`
	Name            string    `json:"name" binding:"required"`
	Email           string    `json:"email" binding:"required"`
	Company         string    `json:"company"`
	Notes           string    `json:"notes"`
	WithMeetingLink bool      `json:"with_meeting_link"`
}
