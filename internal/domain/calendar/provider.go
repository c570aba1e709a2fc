package calendar

import (
	"context"
	"time"

	"github.com/BruksfildServices01/club-calendar/internal/models"
)

// ProviderGoogle names the Google Calendar connection.
const ProviderGoogle = "google"

// RemoteEvent is an event as the provider knows it.
type RemoteEvent struct {
	ID          string
	ETag        string
	MeetingLink string
}

// EventPayload is what gets pushed. Times are opaque instants.
type EventPayload struct {
	LocalID     string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    *time.Location
}

// CalendarProvider is the OAuth-authenticated external calendar.
type CalendarProvider interface {
	Name() string
	Configured() bool

	AuthURL(state string) string
	Exchange(ctx context.Context, ownerID uint, code string) error
	Disconnect(ctx context.Context, ownerID uint) error

	ListEvents(ctx context.Context, ownerID uint, from, to time.Time) ([]RemoteEvent, error)
	InsertEvent(ctx context.Context, ownerID uint, ev EventPayload) (RemoteEvent, error)
	UpdateEvent(ctx context.Context, ownerID uint, providerID string, ev EventPayload) (RemoteEvent, error)
	DeleteEvent(ctx context.Context, ownerID uint, providerID string) error
}

type MeetingRequest struct {
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	Location      *time.Location
}

// MeetingLink is the allocated video-meeting URL and the provider event
// that carries it.
type MeetingLink struct {
	URL             string
	ProviderEventID string
	ETag            string
}

type MeetingLinkProvisioner interface {
	CreateMeeting(ctx context.Context, ownerID uint, req MeetingRequest) (MeetingLink, error)
}

// BookingNotifier tells the owner about new bookings.
type BookingNotifier interface {
	BookingCreated(ctx context.Context, owner *models.Owner, b *models.Booking) error
}
