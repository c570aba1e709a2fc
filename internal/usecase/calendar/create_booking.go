package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
	"github.com/BruksfildServices01/club-calendar/internal/validators"
)

const (
	defaultMeetingTimeout = 15 * time.Second
	notifyTimeout         = 10 * time.Second
	maxErrorText          = 255
)

// ======================================================
// INPUT
// ======================================================

type CreateBookingInput struct {
	OwnerID uint
	Slug    string

	Start time.Time
	End   time.Time

	ProspectName    string
	ProspectEmail   string
	ProspectCompany string
	Notes           string

	WithMeeting bool
}

type BookingOptions struct {
	// CreateEvent adds an owner-visible demo event for every booking.
	CreateEvent    bool
	MeetingTimeout time.Duration
}

// ======================================================
// USE CASE
// ======================================================

type CreateBooking struct {
	repo     domain.Repository
	conns    domain.SyncRepository
	meetings domain.MeetingLinkProvisioner
	cleanup  *RemoteCleanup
	notifier domain.BookingNotifier
	audit    *audit.Dispatcher
	log      *slog.Logger
	opts     BookingOptions
	now      func() time.Time
}

// NewCreateBooking accepts nil meetings, cleanup and notifier.
func NewCreateBooking(
	repo domain.Repository,
	conns domain.SyncRepository,
	meetings domain.MeetingLinkProvisioner,
	cleanup *RemoteCleanup,
	notifier domain.BookingNotifier,
	audit *audit.Dispatcher,
	log *slog.Logger,
	opts BookingOptions,
) *CreateBooking {
	if opts.MeetingTimeout <= 0 {
		opts.MeetingTimeout = defaultMeetingTimeout
	}
	return &CreateBooking{
		repo:     repo,
		conns:    conns,
		meetings: meetings,
		cleanup:  cleanup,
		notifier: notifier,
		audit:    audit,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateBooking) Execute(
	ctx context.Context,
	in CreateBookingInput,
) (*models.Booking, error) {

	// --------------------------------------------------
	// Owner
	// --------------------------------------------------
	owner, err := uc.loadOwner(ctx, in)
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Prospect + slot shape
	// --------------------------------------------------
	name := strings.TrimSpace(in.ProspectName)
	email := strings.ToLower(strings.TrimSpace(in.ProspectEmail))
	if name == "" || !validators.IsEmailSyntaxValid(email) {
		return nil, domain.ErrInvalidProspect
	}

	slot := domain.Interval{Start: in.Start, End: in.End}
	if slot.End.Sub(slot.Start) != slotDuration(owner) {
		return nil, domain.ErrInvalidSlot
	}

	// --------------------------------------------------
	// Precheck, before any meeting is allocated
	// --------------------------------------------------
	open, err := isOpen(ctx, uc.repo, owner, slot, uc.now())
	if err != nil {
		return nil, err
	}
	if !open {
		uc.auditConflict(owner.ID, slot)
		return nil, domain.ErrSlotNoLongerAvailable
	}

	b := &models.Booking{
		ID:              uuid.NewString(),
		OwnerID:         owner.ID,
		SlotStart:       slot.Start,
		SlotEnd:         slot.End,
		ProspectName:    name,
		ProspectEmail:   email,
		ProspectCompany: strings.TrimSpace(in.ProspectCompany),
		Notes:           strings.TrimSpace(in.Notes),
		State:           string(domain.InitialState()),
	}

	// --------------------------------------------------
	// Meeting link (failure degrades, never blocks)
	// --------------------------------------------------
	var link domain.MeetingLink
	if in.WithMeeting {
		link = uc.provisionMeeting(ctx, owner, b)
	}

	var ev *models.CalendarEvent
	if uc.opts.CreateEvent {
		ev = linkedEvent(b, link)
		b.CalendarEventID = &ev.ID
	}

	// --------------------------------------------------
	// Recheck + persist inside the owner's serialization domain
	// --------------------------------------------------
	err = uc.repo.WithinOwnerLock(ctx, owner.ID, func(tx domain.Repository) error {
		open, err := isOpen(ctx, tx, owner, slot, uc.now())
		if err != nil {
			return err
		}
		if !open {
			return domain.ErrSlotNoLongerAvailable
		}

		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		if ev != nil {
			return tx.CreateEvent(ctx, ev)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotNoLongerAvailable) {
			uc.auditConflict(owner.ID, slot)
			uc.cleanup.DeleteAsync(owner.ID, link.ProviderEventID)
		}
		return nil, err
	}

	// --------------------------------------------------
	// Audit + owner notification
	// --------------------------------------------------
	uc.audit.Dispatch(audit.Event{
		OwnerID:  owner.ID,
		Action:   "booking_created",
		Entity:   "booking",
		EntityID: b.ID,
		Metadata: map[string]any{
			"slot_start":   b.SlotStart,
			"meeting_link": b.MeetingLink != nil,
		},
	})

	uc.notify(owner, b)

	return b, nil
}

func (uc *CreateBooking) loadOwner(ctx context.Context, in CreateBookingInput) (*models.Owner, error) {
	if in.Slug != "" {
		return uc.repo.GetOwnerBySlug(ctx, in.Slug)
	}
	return uc.repo.GetOwnerByID(ctx, in.OwnerID)
}

// provisionMeeting records the outcome on b. The returned link is empty on failure.
func (uc *CreateBooking) provisionMeeting(
	ctx context.Context,
	owner *models.Owner,
	b *models.Booking,
) domain.MeetingLink {

	if uc.meetings == nil || uc.conns == nil {
		b.MeetingLinkError = domain.ErrSyncNotConfigured.Error()
		return domain.MeetingLink{}
	}

	conn, err := uc.conns.GetConnection(ctx, owner.ID, domain.ProviderGoogle)
	if err != nil || !conn.Connected {
		b.MeetingLinkError = domain.ErrSyncNotConnected.Error()
		return domain.MeetingLink{}
	}

	mctx, cancel := context.WithTimeout(ctx, uc.opts.MeetingTimeout)
	defer cancel()

	link, err := uc.meetings.CreateMeeting(mctx, owner.ID, domain.MeetingRequest{
		Title:         "Demo: " + b.ProspectName,
		Description:   bookingDescription(b),
		Start:         b.SlotStart,
		End:           b.SlotEnd,
		AttendeeEmail: b.ProspectEmail,
		Location:      timezone.Location(owner.Timezone),
	})
	if err == nil && link.URL == "" {
		err = domain.ErrMeetingLinkFailed
	}
	if err != nil {
		uc.log.Warn("meeting link provisioning failed",
			slog.Uint64("owner_id", uint64(owner.ID)),
			slog.String("booking_id", b.ID),
			slog.String("error", err.Error()),
		)
		b.MeetingLinkError = truncate(err.Error(), maxErrorText)
		return domain.MeetingLink{}
	}

	url := link.URL
	b.MeetingLink = &url
	return link
}

func (uc *CreateBooking) notify(owner *models.Owner, b *models.Booking) {
	if uc.notifier == nil {
		return
	}

	o, bk := *owner, *b
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := uc.notifier.BookingCreated(ctx, &o, &bk); err != nil {
			uc.log.Warn("booking notification failed",
				slog.String("booking_id", bk.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (uc *CreateBooking) auditConflict(ownerID uint, slot domain.Interval) {
	uc.audit.Dispatch(audit.Event{
		OwnerID: ownerID,
		Action:  "booking_conflict",
		Entity:  "booking",
		Metadata: map[string]any{
			"slot_start": slot.Start,
			"slot_end":   slot.End,
		},
	})
}

// isOpen reports whether slot is exactly one of the day's bookable slots.
func isOpen(
	ctx context.Context,
	repo domain.Repository,
	owner *models.Owner,
	slot domain.Interval,
	now time.Time,
) (bool, error) {

	loc := timezone.Location(owner.Timezone)
	dayStart := timezone.StartOfDay(slot.Start, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	slots, err := openSlots(ctx, repo, owner, dayStart, dayEnd, now)
	if err != nil {
		return false, err
	}

	for _, s := range slots {
		if s.Start.Equal(slot.Start) && s.End.Equal(slot.End) {
			return true, nil
		}
	}
	return false, nil
}

// linkedEvent mirrors the booking in the owner's calendar. When a meeting
// was provisioned the provider event already exists, so the local event
// carries its id and counts as synced.
func linkedEvent(b *models.Booking, link domain.MeetingLink) *models.CalendarEvent {
	ev := &models.CalendarEvent{
		ID:          uuid.NewString(),
		OwnerID:     b.OwnerID,
		Title:       "Demo: " + b.ProspectName,
		Description: bookingDescription(b),
		Type:        string(domain.EventDemo),
		Start:       b.SlotStart,
		End:         b.SlotEnd,
		MeetingLink: b.MeetingLink,
		Revision:    1,
	}

	if link.ProviderEventID != "" {
		id, etag := link.ProviderEventID, link.ETag
		ev.ExternalID = &id
		ev.ExternalETag = &etag
		ev.SyncedRevision = 1
	}
	return ev
}

func bookingDescription(b *models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <%s>", b.ProspectName, b.ProspectEmail)
	if b.ProspectCompany != "" {
		fmt.Fprintf(&sb, "\n%s", b.ProspectCompany)
	}
	if b.Notes != "" {
		fmt.Fprintf(&sb, "\n\n%s", b.Notes)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
