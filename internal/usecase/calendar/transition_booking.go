package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type TransitionBooking struct {
	repo    domain.Repository
	cleanup *RemoteCleanup
	audit   *audit.Dispatcher
	log     *slog.Logger
	now     func() time.Time
}

func NewTransitionBooking(
	repo domain.Repository,
	cleanup *RemoteCleanup,
	audit *audit.Dispatcher,
	log *slog.Logger,
) *TransitionBooking {
	return &TransitionBooking{
		repo:    repo,
		cleanup: cleanup,
		audit:   audit,
		log:     log,
		now:     time.Now,
	}
}

func (uc *TransitionBooking) Execute(
	ctx context.Context,
	ownerID uint,
	bookingID string,
	target string,
) (*models.Booking, error) {

	to, err := domain.ParseState(target)
	if err != nil {
		return nil, err
	}

	b, err := uc.repo.GetBooking(ctx, ownerID, bookingID)
	if err != nil {
		return nil, err
	}

	from := domain.State(b.State)
	if err := domain.CanTransition(from, to); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Compare-and-swap: a concurrent transition wins the race
	// --------------------------------------------------
	now := uc.now()
	ok, err := uc.repo.TransitionBooking(ctx, ownerID, bookingID, from, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrIllegalTransition
	}

	if to == domain.StateCancelled && b.CalendarEventID != nil {
		uc.releaseLinkedEvent(ctx, ownerID, *b.CalendarEventID)
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "booking_" + string(to),
		Entity:   "booking",
		EntityID: bookingID,
		Metadata: map[string]any{"from": string(from)},
	})

	return uc.repo.GetBooking(ctx, ownerID, bookingID)
}

// releaseLinkedEvent drops the demo event so the slot is offered again.
func (uc *TransitionBooking) releaseLinkedEvent(ctx context.Context, ownerID uint, eventID string) {
	ev, err := uc.repo.GetEvent(ctx, ownerID, eventID)
	if err != nil {
		if !errors.Is(err, domain.ErrEventNotFound) {
			uc.log.Warn("linked event lookup failed",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := uc.repo.DeleteEvent(ctx, ownerID, eventID); err != nil && !errors.Is(err, domain.ErrEventNotFound) {
		uc.log.Warn("linked event delete failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		return
	}

	if ev.HasExternal() {
		uc.cleanup.DeleteAsync(ownerID, *ev.ExternalID)
	}
}

// ======================================================
// LIST
// ======================================================

type ListBookings struct {
	repo domain.Repository
}

func NewListBookings(repo domain.Repository) *ListBookings {
	return &ListBookings{repo: repo}
}

// Execute returns every booking of the owner, most recent slot first.
func (uc *ListBookings) Execute(ctx context.Context, ownerID uint) ([]models.Booking, error) {
	return uc.repo.ListBookings(ctx, ownerID)
}
