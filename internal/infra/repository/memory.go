package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

// MemoryRepository keeps everything in process. It backs STORAGE_DRIVER=memory
// and the use case tests. WithinOwnerLock serializes per owner but does not
// roll back writes made before fn fails.
type MemoryRepository struct {
	mu          sync.RWMutex
	owners      map[uint]models.Owner
	nextOwnerID uint
	events      map[string]models.CalendarEvent
	rules       map[uint][]models.AvailabilityRule
	bookings    map[string]models.Booking
	conns       map[string]models.SyncConnection

	lockMu     sync.Mutex
	ownerLocks map[uint]*sync.Mutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		owners:     make(map[uint]models.Owner),
		events:     make(map[string]models.CalendarEvent),
		rules:      make(map[uint][]models.AvailabilityRule),
		bookings:   make(map[string]models.Booking),
		conns:      make(map[string]models.SyncConnection),
		ownerLocks: make(map[uint]*sync.Mutex),
	}
}

// --------------------------------------------------
// Owner
// --------------------------------------------------

func (r *MemoryRepository) GetOwnerByID(_ context.Context, id uint) (*models.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.owners[id]
	if !ok {
		return nil, domain.ErrOwnerNotFound
	}
	return &o, nil
}

func (r *MemoryRepository) GetOwnerBySlug(_ context.Context, slug string) (*models.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.owners {
		if o.Slug == slug {
			return &o, nil
		}
	}
	return nil, domain.ErrOwnerNotFound
}

func (r *MemoryRepository) GetOwnerByEmail(_ context.Context, email string) (*models.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.owners {
		if o.Email == email {
			return &o, nil
		}
	}
	return nil, domain.ErrOwnerNotFound
}

func (r *MemoryRepository) CreateOwner(_ context.Context, owner *models.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.owners {
		if o.Email == owner.Email || o.Slug == owner.Slug {
			return domain.ErrOwnerExists
		}
	}

	if owner.ID == 0 {
		r.nextOwnerID++
		owner.ID = r.nextOwnerID
	} else if owner.ID > r.nextOwnerID {
		r.nextOwnerID = owner.ID
	}

	now := time.Now()
	owner.CreatedAt, owner.UpdatedAt = now, now
	r.owners[owner.ID] = *owner
	return nil
}

func (r *MemoryRepository) UpdateOwnerSettings(_ context.Context, owner *models.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.owners[owner.ID]
	if !ok {
		return domain.ErrOwnerNotFound
	}

	cur.Name = owner.Name
	cur.Timezone = owner.Timezone
	cur.MinAdvanceMinutes = owner.MinAdvanceMinutes
	cur.SlotMinutes = owner.SlotMinutes
	cur.TelegramChatID = owner.TelegramChatID
	cur.UpdatedAt = time.Now()
	r.owners[owner.ID] = cur
	return nil
}

// --------------------------------------------------
// Events
// --------------------------------------------------

func (r *MemoryRepository) CreateEvent(_ context.Context, ev *models.CalendarEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[ev.ID]; ok {
		return fmt.Errorf("event %s already exists", ev.ID)
	}

	now := time.Now()
	ev.CreatedAt, ev.UpdatedAt = now, now
	r.events[ev.ID] = *ev
	return nil
}

func (r *MemoryRepository) GetEvent(_ context.Context, ownerID uint, id string) (*models.CalendarEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok || ev.OwnerID != ownerID {
		return nil, domain.ErrEventNotFound
	}
	return &ev, nil
}

func (r *MemoryRepository) UpdateEvent(_ context.Context, ev *models.CalendarEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.events[ev.ID]
	if !ok || cur.OwnerID != ev.OwnerID {
		return domain.ErrEventNotFound
	}

	cur.Title = ev.Title
	cur.Description = ev.Description
	cur.Type = ev.Type
	cur.Color = ev.Color
	cur.Start = ev.Start
	cur.End = ev.End
	cur.AllDay = ev.AllDay
	cur.LeadRef = ev.LeadRef
	cur.ClubRef = ev.ClubRef
	cur.MeetingLink = ev.MeetingLink
	cur.Revision++
	cur.UpdatedAt = time.Now()
	r.events[ev.ID] = cur

	ev.Revision = cur.Revision
	return nil
}

func (r *MemoryRepository) DeleteEvent(_ context.Context, ownerID uint, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok || ev.OwnerID != ownerID {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *MemoryRepository) ListEventsForPeriod(_ context.Context, ownerID uint, start, end time.Time) ([]models.CalendarEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.CalendarEvent{}
	for _, ev := range r.events {
		if ev.OwnerID == ownerID && ev.Start.Before(end) && ev.End.After(start) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *MemoryRepository) MarkEventSynced(_ context.Context, ownerID uint, id string, remote domain.RemoteEvent, revision int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok || ev.OwnerID != ownerID {
		return nil
	}
	externalID, etag := remote.ID, remote.ETag
	ev.ExternalID = &externalID
	ev.ExternalETag = &etag
	ev.SyncedRevision = revision
	if remote.MeetingLink != "" {
		link := remote.MeetingLink
		ev.MeetingLink = &link
	}
	r.events[id] = ev
	return nil
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

func (r *MemoryRepository) GetAvailability(_ context.Context, ownerID uint) ([]models.AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]models.AvailabilityRule, len(r.rules[ownerID]))
	copy(rules, r.rules[ownerID])
	return rules, nil
}

func (r *MemoryRepository) ReplaceAvailability(_ context.Context, ownerID uint, rules []models.AvailabilityRule) error {
	stored := make([]models.AvailabilityRule, len(rules))
	copy(stored, rules)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Weekday < stored[j].Weekday })

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules[ownerID] = stored
	return nil
}

// --------------------------------------------------
// Bookings
// --------------------------------------------------

func (r *MemoryRepository) CreateBooking(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.bookings {
		if other.OwnerID == b.OwnerID &&
			domain.State(other.State).BlocksSlot() &&
			other.SlotStart.Equal(b.SlotStart) &&
			other.SlotEnd.Equal(b.SlotEnd) {
			return domain.ErrSlotNoLongerAvailable
		}
	}

	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.bookings[b.ID] = *b
	return nil
}

func (r *MemoryRepository) GetBooking(_ context.Context, ownerID uint, id string) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok || b.OwnerID != ownerID {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) ListBookings(_ context.Context, ownerID uint) ([]models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Booking{}
	for _, b := range r.bookings {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotStart.After(out[j].SlotStart) })
	return out, nil
}

func (r *MemoryRepository) ListBlockingBookingsForPeriod(_ context.Context, ownerID uint, start, end time.Time) ([]models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Booking{}
	for _, b := range r.bookings {
		if b.OwnerID == ownerID &&
			domain.State(b.State).BlocksSlot() &&
			b.SlotStart.Before(end) && b.SlotEnd.After(start) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotStart.Before(out[j].SlotStart) })
	return out, nil
}

func (r *MemoryRepository) TransitionBooking(_ context.Context, ownerID uint, id string, from, to domain.State, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.OwnerID != ownerID || b.State != string(from) {
		return false, nil
	}
	b.State = string(to)
	b.ClosedAt = &at
	b.UpdatedAt = at
	r.bookings[id] = b
	return true, nil
}

// --------------------------------------------------
// Unit of work
// --------------------------------------------------

func (r *MemoryRepository) WithinOwnerLock(ctx context.Context, ownerID uint, fn func(repo domain.Repository) error) error {
	if _, err := r.GetOwnerByID(ctx, ownerID); err != nil {
		return err
	}

	r.lockMu.Lock()
	l, ok := r.ownerLocks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		r.ownerLocks[ownerID] = l
	}
	r.lockMu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(r)
}

// --------------------------------------------------
// Sync connections
// --------------------------------------------------

func connKey(ownerID uint, provider string) string {
	return fmt.Sprintf("%d:%s", ownerID, provider)
}

func (r *MemoryRepository) GetConnection(_ context.Context, ownerID uint, provider string) (*models.SyncConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connKey(ownerID, provider)]
	if !ok {
		return nil, domain.ErrSyncNotConnected
	}
	return &c, nil
}

func (r *MemoryRepository) SaveConnection(_ context.Context, conn *models.SyncConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connKey(conn.OwnerID, conn.Provider)
	now := time.Now()
	if cur, ok := r.conns[key]; ok {
		cur.Connected = conn.Connected
		cur.CalendarID = conn.CalendarID
		cur.AccessToken = conn.AccessToken
		cur.RefreshToken = conn.RefreshToken
		cur.TokenType = conn.TokenType
		cur.TokenExpiry = conn.TokenExpiry
		cur.UpdatedAt = now
		r.conns[key] = cur
		return nil
	}

	conn.CreatedAt, conn.UpdatedAt = now, now
	r.conns[key] = *conn
	return nil
}

func (r *MemoryRepository) ClearConnection(_ context.Context, ownerID uint, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, connKey(ownerID, provider))
	return nil
}

func (r *MemoryRepository) MarkDisconnected(_ context.Context, ownerID uint, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connKey(ownerID, provider)
	if c, ok := r.conns[key]; ok {
		c.Connected = false
		c.AccessToken = ""
		c.RefreshToken = ""
		r.conns[key] = c
	}
	return nil
}

func (r *MemoryRepository) SaveSyncStats(_ context.Context, ownerID uint, provider string, at time.Time, stats domain.SyncStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connKey(ownerID, provider)
	c, ok := r.conns[key]
	if !ok {
		return nil
	}
	c.LastSyncAt = &at
	c.LastCreated = stats.Created
	c.LastUpdated = stats.Updated
	c.LastSkipped = stats.Skipped
	c.LastErrors = stats.Errors
	r.conns[key] = c
	return nil
}

func (r *MemoryRepository) ListConnected(_ context.Context, provider string) ([]models.SyncConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.SyncConnection{}
	for _, c := range r.conns {
		if c.Provider == provider && c.Connected {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	return out, nil
}

var (
	_ domain.Repository     = (*MemoryRepository)(nil)
	_ domain.SyncRepository = (*MemoryRepository)(nil)
)
