package calendar

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
)

// ======================================================
// INPUT
// ======================================================

type EventInput struct {
	Title       string
	Description string
	Type        string
	Color       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	LeadRef     *string
	ClubRef     *string
	MeetingLink *string
}

// apply validates in and copies it onto ev. All-day events are widened to
// whole days in loc.
func (in EventInput) apply(ev *models.CalendarEvent, loc *time.Location) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.ErrInvalidEventTitle
	}

	typ, err := domain.ParseEventType(in.Type)
	if err != nil {
		return err
	}

	start, end := in.Start, in.End
	if in.AllDay {
		start = timezone.StartOfDay(start, loc)
		end = timezone.EndOfDay(end, loc)
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	}
	if start.IsZero() || !end.After(start) {
		return domain.ErrInvalidEventTime
	}

	ev.Title = title
	ev.Description = in.Description
	ev.Type = string(typ)
	ev.Color = in.Color
	ev.Start = start
	ev.End = end
	ev.AllDay = in.AllDay
	ev.LeadRef = blankToNil(in.LeadRef)
	ev.ClubRef = blankToNil(in.ClubRef)
	ev.MeetingLink = blankToNil(in.MeetingLink)
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// ======================================================
// CREATE
// ======================================================

type CreateEvent struct {
	repo  domain.Repository
	audit *audit.Dispatcher
}

func NewCreateEvent(repo domain.Repository, audit *audit.Dispatcher) *CreateEvent {
	return &CreateEvent{repo: repo, audit: audit}
}

func (uc *CreateEvent) Execute(
	ctx context.Context,
	ownerID uint,
	in EventInput,
) (*models.CalendarEvent, error) {

	owner, err := uc.repo.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ev := &models.CalendarEvent{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Revision: 1,
	}
	if err := in.apply(ev, timezone.Location(owner.Timezone)); err != nil {
		return nil, err
	}

	if err := uc.repo.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "event_created",
		Entity:   "calendar_event",
		EntityID: ev.ID,
	})

	return ev, nil
}

// ======================================================
// UPDATE
// ======================================================

type UpdateEvent struct {
	repo  domain.Repository
	audit *audit.Dispatcher
}

func NewUpdateEvent(repo domain.Repository, audit *audit.Dispatcher) *UpdateEvent {
	return &UpdateEvent{repo: repo, audit: audit}
}

// Execute replaces the editable fields and bumps the revision, which marks
// the event for the next sync. Bookings are never touched.
func (uc *UpdateEvent) Execute(
	ctx context.Context,
	ownerID uint,
	eventID string,
	in EventInput,
) (*models.CalendarEvent, error) {

	owner, err := uc.repo.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ev, err := uc.repo.GetEvent(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}

	if err := in.apply(ev, timezone.Location(owner.Timezone)); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateEvent(ctx, ev); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "event_updated",
		Entity:   "calendar_event",
		EntityID: ev.ID,
	})

	return uc.repo.GetEvent(ctx, ownerID, eventID)
}

// ======================================================
// DELETE
// ======================================================

type DeleteEvent struct {
	repo    domain.Repository
	cleanup *RemoteCleanup
	audit   *audit.Dispatcher
}

func NewDeleteEvent(repo domain.Repository, cleanup *RemoteCleanup, audit *audit.Dispatcher) *DeleteEvent {
	return &DeleteEvent{repo: repo, cleanup: cleanup, audit: audit}
}

// Execute deletes locally right away; the provider copy is removed in the
// background.
func (uc *DeleteEvent) Execute(ctx context.Context, ownerID uint, eventID string) error {
	ev, err := uc.repo.GetEvent(ctx, ownerID, eventID)
	if err != nil {
		return err
	}

	if err := uc.repo.DeleteEvent(ctx, ownerID, eventID); err != nil {
		return err
	}

	if ev.HasExternal() {
		uc.cleanup.DeleteAsync(ownerID, *ev.ExternalID)
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "event_deleted",
		Entity:   "calendar_event",
		EntityID: eventID,
	})
	return nil
}

// ======================================================
// LIST
// ======================================================

type ListEvents struct {
	repo domain.Repository
}

func NewListEvents(repo domain.Repository) *ListEvents {
	return &ListEvents{repo: repo}
}

func (uc *ListEvents) Execute(
	ctx context.Context,
	ownerID uint,
	start, end time.Time,
) ([]models.CalendarEvent, error) {

	if !end.After(start) {
		return nil, domain.ErrInvalidWindow
	}
	return uc.repo.ListEventsForPeriod(ctx, ownerID, start, end)
}
