package calendar

import (
	"context"
	"time"

	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type Repository interface {
	// -------- Owner --------
	GetOwnerByID(
		ctx context.Context,
		id uint,
	) (*models.Owner, error)

	GetOwnerBySlug(
		ctx context.Context,
		slug string,
	) (*models.Owner, error)

	GetOwnerByEmail(
		ctx context.Context,
		email string,
	) (*models.Owner, error)

	CreateOwner(
		ctx context.Context,
		owner *models.Owner,
	) error

	// UpdateOwnerSettings saves name, timezone, booking rules and the
	// notification chat. Credentials and slug are left alone.
	UpdateOwnerSettings(
		ctx context.Context,
		owner *models.Owner,
	) error

	// -------- Events --------
	CreateEvent(
		ctx context.Context,
		ev *models.CalendarEvent,
	) error

	GetEvent(
		ctx context.Context,
		ownerID uint,
		id string,
	) (*models.CalendarEvent, error)

	UpdateEvent(
		ctx context.Context,
		ev *models.CalendarEvent,
	) error

	DeleteEvent(
		ctx context.Context,
		ownerID uint,
		id string,
	) error

	// ListEventsForPeriod returns events overlapping [start, end).
	ListEventsForPeriod(
		ctx context.Context,
		ownerID uint,
		start time.Time,
		end time.Time,
	) ([]models.CalendarEvent, error)

	// MarkEventSynced stores the provider correlation. revision is the one
	// that was pushed; later local edits keep the event dirty. A non-empty
	// remote meeting link replaces the local one.
	MarkEventSynced(
		ctx context.Context,
		ownerID uint,
		id string,
		remote RemoteEvent,
		revision int,
	) error

	// -------- Availability --------
	GetAvailability(
		ctx context.Context,
		ownerID uint,
	) ([]models.AvailabilityRule, error)

	// ReplaceAvailability swaps the whole weekly template atomically.
	ReplaceAvailability(
		ctx context.Context,
		ownerID uint,
		rules []models.AvailabilityRule,
	) error

	// -------- Bookings --------
	CreateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	GetBooking(
		ctx context.Context,
		ownerID uint,
		id string,
	) (*models.Booking, error)

	ListBookings(
		ctx context.Context,
		ownerID uint,
	) ([]models.Booking, error)

	// ListBlockingBookingsForPeriod returns non-cancelled bookings overlapping [start, end).
	ListBlockingBookingsForPeriod(
		ctx context.Context,
		ownerID uint,
		start time.Time,
		end time.Time,
	) ([]models.Booking, error)

	// TransitionBooking is a compare-and-swap on state. It reports false
	// when the booking is missing or no longer in from.
	TransitionBooking(
		ctx context.Context,
		ownerID uint,
		id string,
		from State,
		to State,
		at time.Time,
	) (bool, error)

	// -------- Unit of work --------

	// WithinOwnerLock runs fn with a repository bound to a transaction that
	// holds the owner's serialization lock. Bookings are created in it.
	WithinOwnerLock(
		ctx context.Context,
		ownerID uint,
		fn func(repo Repository) error,
	) error
}

type SyncRepository interface {
	GetConnection(
		ctx context.Context,
		ownerID uint,
		provider string,
	) (*models.SyncConnection, error)

	SaveConnection(
		ctx context.Context,
		conn *models.SyncConnection,
	) error

	// ClearConnection removes the connection and its cursor.
	ClearConnection(
		ctx context.Context,
		ownerID uint,
		provider string,
	) error

	// MarkDisconnected keeps the cursor but flags the token as unusable.
	MarkDisconnected(
		ctx context.Context,
		ownerID uint,
		provider string,
	) error

	SaveSyncStats(
		ctx context.Context,
		ownerID uint,
		provider string,
		at time.Time,
		stats SyncStats,
	) error

	ListConnected(
		ctx context.Context,
		provider string,
	) ([]models.SyncConnection, error)
}

// SyncStats is the aggregate outcome of one reconciliation pass.
type SyncStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}
