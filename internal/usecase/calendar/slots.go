package calendar

import (
	"context"
	"time"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
)

const (
	defaultSlotMinutes       = 30
	defaultMinAdvanceMinutes = 120
)

func slotDuration(owner *models.Owner) time.Duration {
	m := owner.SlotMinutes
	if m <= 0 {
		m = defaultSlotMinutes
	}
	return time.Duration(m) * time.Minute
}

func minAdvance(owner *models.Owner) time.Duration {
	m := owner.MinAdvanceMinutes
	if m < 0 {
		m = defaultMinAdvanceMinutes
	}
	return time.Duration(m) * time.Minute
}

// busyIntervals collects every event and every non-cancelled booking
// overlapping [start, end).
func busyIntervals(
	ctx context.Context,
	repo domain.Repository,
	ownerID uint,
	start, end time.Time,
) ([]domain.Interval, error) {

	events, err := repo.ListEventsForPeriod(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	bookings, err := repo.ListBlockingBookingsForPeriod(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	busy := make([]domain.Interval, 0, len(events)+len(bookings))
	for _, ev := range events {
		busy = append(busy, domain.Interval{Start: ev.Start, End: ev.End})
	}
	for _, b := range bookings {
		busy = append(busy, domain.Interval{Start: b.SlotStart, End: b.SlotEnd})
	}
	return busy, nil
}

// openSlots is the bookable slot list of [start, end) as seen at now.
func openSlots(
	ctx context.Context,
	repo domain.Repository,
	owner *models.Owner,
	start, end time.Time,
	now time.Time,
) ([]domain.Slot, error) {

	if !end.After(start) {
		return nil, domain.ErrInvalidWindow
	}

	rules, err := repo.GetAvailability(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	busy, err := busyIntervals(ctx, repo, owner.ID, start, end)
	if err != nil {
		return nil, err
	}

	slots, err := domain.ComputeSlots(domain.SlotQuery{
		Rules:        rules,
		Busy:         busy,
		Location:     timezone.Location(owner.Timezone),
		WindowStart:  start,
		WindowEnd:    end,
		SlotDuration: slotDuration(owner),
	})
	if err != nil {
		return nil, err
	}

	earliest := now.Add(minAdvance(owner))
	out := slots[:0]
	for _, s := range slots {
		if s.Start.Before(earliest) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ======================================================
// USE CASE
// ======================================================

type ComputeSlots struct {
	repo domain.Repository
	now  func() time.Time
}

func NewComputeSlots(repo domain.Repository) *ComputeSlots {
	return &ComputeSlots{repo: repo, now: time.Now}
}

func (uc *ComputeSlots) Execute(
	ctx context.Context,
	ownerID uint,
	start, end time.Time,
) ([]domain.Slot, error) {

	owner, err := uc.repo.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return openSlots(ctx, uc.repo, owner, start, end, uc.now())
}

// ExecuteBySlug is the public variant addressed by the owner's slug.
func (uc *ComputeSlots) ExecuteBySlug(
	ctx context.Context,
	slug string,
	start, end time.Time,
) ([]domain.Slot, error) {

	owner, err := uc.repo.GetOwnerBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	return openSlots(ctx, uc.repo, owner, start, end, uc.now())
}
