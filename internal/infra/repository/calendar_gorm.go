package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type CalendarGormRepository struct {
	db *gorm.DB
}

func NewCalendarGormRepository(db *gorm.DB) *CalendarGormRepository {
	return &CalendarGormRepository{db: db}
}

func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// --------------------------------------------------
// Owner
// --------------------------------------------------

func (r *CalendarGormRepository) GetOwnerByID(
	ctx context.Context,
	id uint,
) (*models.Owner, error) {

	var owner models.Owner
	if err := r.db.WithContext(ctx).First(&owner, id).Error; err != nil {
		return nil, notFound(err, domain.ErrOwnerNotFound)
	}
	return &owner, nil
}

func (r *CalendarGormRepository) GetOwnerBySlug(
	ctx context.Context,
	slug string,
) (*models.Owner, error) {

	var owner models.Owner
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&owner).Error; err != nil {
		return nil, notFound(err, domain.ErrOwnerNotFound)
	}
	return &owner, nil
}

func (r *CalendarGormRepository) GetOwnerByEmail(
	ctx context.Context,
	email string,
) (*models.Owner, error) {

	var owner models.Owner
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&owner).Error; err != nil {
		return nil, notFound(err, domain.ErrOwnerNotFound)
	}
	return &owner, nil
}

func (r *CalendarGormRepository) CreateOwner(
	ctx context.Context,
	owner *models.Owner,
) error {
	if err := r.db.WithContext(ctx).Create(owner).Error; err != nil {
		if httperr.IsUniqueViolation(err) {
			return domain.ErrOwnerExists
		}
		return err
	}
	return nil
}

func (r *CalendarGormRepository) UpdateOwnerSettings(
	ctx context.Context,
	owner *models.Owner,
) error {
	res := r.db.WithContext(ctx).
		Model(&models.Owner{}).
		Where("id = ?", owner.ID).
		Updates(map[string]any{
			"name":                owner.Name,
			"timezone":            owner.Timezone,
			"min_advance_minutes": owner.MinAdvanceMinutes,
			"slot_minutes":        owner.SlotMinutes,
			"telegram_chat_id":    owner.TelegramChatID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOwnerNotFound
	}
	return nil
}

// --------------------------------------------------
// Events
// --------------------------------------------------

func (r *CalendarGormRepository) CreateEvent(
	ctx context.Context,
	ev *models.CalendarEvent,
) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *CalendarGormRepository) GetEvent(
	ctx context.Context,
	ownerID uint,
	id string,
) (*models.CalendarEvent, error) {

	var ev models.CalendarEvent
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&ev).Error; err != nil {
		return nil, notFound(err, domain.ErrEventNotFound)
	}
	return &ev, nil
}

func (r *CalendarGormRepository) UpdateEvent(
	ctx context.Context,
	ev *models.CalendarEvent,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.CalendarEvent{}).
		Where("id = ? AND owner_id = ?", ev.ID, ev.OwnerID).
		Updates(map[string]any{
			"title":        ev.Title,
			"description":  ev.Description,
			"type":         ev.Type,
			"color":        ev.Color,
			"starts_at":    ev.Start,
			"ends_at":      ev.End,
			"all_day":      ev.AllDay,
			"lead_ref":     ev.LeadRef,
			"club_ref":     ev.ClubRef,
			"meeting_link": ev.MeetingLink,
			"revision":     gorm.Expr("revision + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}

	ev.Revision++
	return nil
}

func (r *CalendarGormRepository) DeleteEvent(
	ctx context.Context,
	ownerID uint,
	id string,
) error {

	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.CalendarEvent{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *CalendarGormRepository) ListEventsForPeriod(
	ctx context.Context,
	ownerID uint,
	start time.Time,
	end time.Time,
) ([]models.CalendarEvent, error) {

	var events []models.CalendarEvent
	if err := r.db.WithContext(ctx).
		Where(
			"owner_id = ? AND starts_at < ? AND ends_at > ?",
			ownerID, end, start,
		).
		Order("starts_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *CalendarGormRepository) MarkEventSynced(
	ctx context.Context,
	ownerID uint,
	id string,
	remote domain.RemoteEvent,
	revision int,
) error {

	cols := map[string]any{
		"external_id":     remote.ID,
		"external_etag":   remote.ETag,
		"synced_revision": revision,
	}
	if remote.MeetingLink != "" {
		cols["meeting_link"] = remote.MeetingLink
	}

	return r.db.WithContext(ctx).
		Model(&models.CalendarEvent{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		UpdateColumns(cols).Error
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

func (r *CalendarGormRepository) GetAvailability(
	ctx context.Context,
	ownerID uint,
) ([]models.AvailabilityRule, error) {

	var rules []models.AvailabilityRule
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("weekday ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *CalendarGormRepository) ReplaceAvailability(
	ctx context.Context,
	ownerID uint,
	rules []models.AvailabilityRule,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwner(tx, ownerID); err != nil {
			return err
		}

		if err := tx.
			Where("owner_id = ?", ownerID).
			Delete(&models.AvailabilityRule{}).Error; err != nil {
			return err
		}

		if len(rules) == 0 {
			return nil
		}
		return tx.Create(&rules).Error
	})
}

// --------------------------------------------------
// Bookings
// --------------------------------------------------

func (r *CalendarGormRepository) CreateBooking(
	ctx context.Context,
	b *models.Booking,
) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		if httperr.IsUniqueViolation(err) {
			return domain.ErrSlotNoLongerAvailable
		}
		return err
	}
	return nil
}

func (r *CalendarGormRepository) GetBooking(
	ctx context.Context,
	ownerID uint,
	id string,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&b).Error; err != nil {
		return nil, notFound(err, domain.ErrBookingNotFound)
	}
	return &b, nil
}

func (r *CalendarGormRepository) ListBookings(
	ctx context.Context,
	ownerID uint,
) ([]models.Booking, error) {

	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("slot_start DESC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *CalendarGormRepository) ListBlockingBookingsForPeriod(
	ctx context.Context,
	ownerID uint,
	start time.Time,
	end time.Time,
) ([]models.Booking, error) {

	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Where(
			"owner_id = ? AND state <> ? AND slot_start < ? AND slot_end > ?",
			ownerID, string(domain.StateCancelled), end, start,
		).
		Order("slot_start ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *CalendarGormRepository) TransitionBooking(
	ctx context.Context,
	ownerID uint,
	id string,
	from domain.State,
	to domain.State,
	at time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND owner_id = ? AND state = ?", id, ownerID, string(from)).
		Updates(map[string]any{
			"state":     string(to),
			"closed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// --------------------------------------------------
// Unit of work
// --------------------------------------------------

func (r *CalendarGormRepository) WithinOwnerLock(
	ctx context.Context,
	ownerID uint,
	fn func(repo domain.Repository) error,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwner(tx, ownerID); err != nil {
			return err
		}
		return fn(&CalendarGormRepository{db: tx})
	})
}

// lockOwner takes the row lock every booking write of the owner queues on.
func lockOwner(tx *gorm.DB, ownerID uint) error {
	var owner models.Owner
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&owner, ownerID).Error; err != nil {
		return notFound(err, domain.ErrOwnerNotFound)
	}
	return nil
}

// Compile-time check
var _ domain.Repository = (*CalendarGormRepository)(nil)
