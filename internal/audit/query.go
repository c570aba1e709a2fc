package audit

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/BruksfildServices01/club-calendar/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Query filters an owner's audit trail. Zero fields are ignored.
type Query struct {
	OwnerID uint
	Action  string
	Entity  string
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

func (q Query) normalized() Query {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}
	return q
}

func (q Query) offset() int {
	return (q.Page - 1) * q.Limit
}

type Reader interface {
	List(ctx context.Context, q Query) ([]models.AuditLog, int64, error)
}

// List returns one page, newest first, and the total match count.
func (l *Logger) List(ctx context.Context, q Query) ([]models.AuditLog, int64, error) {
	q = q.normalized()

	tx := l.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("owner_id = ?", q.OwnerID)

	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if q.Entity != "" {
		tx = tx.Where("entity = ?", q.Entity)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("created_at < ?", *q.To)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	if err := tx.
		Order("created_at DESC").
		Limit(q.Limit).
		Offset(q.offset()).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ======================================================
// In-memory store
// ======================================================

// MemoryStore keeps the most recent entries, for the memory storage driver.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	nextID   uint
	rows     []models.AuditLog
	now      func() time.Time
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryStore{capacity: capacity, now: time.Now}
}

func (s *MemoryStore) Log(ev Event) error {
	var meta string
	if ev.Metadata != nil {
		if b, err := json.Marshal(ev.Metadata); err == nil {
			meta = string(b)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.rows = append(s.rows, models.AuditLog{
		ID:        s.nextID,
		OwnerID:   ev.OwnerID,
		Action:    ev.Action,
		Entity:    ev.Entity,
		EntityID:  ev.EntityID,
		Metadata:  meta,
		CreatedAt: s.now(),
	})
	if len(s.rows) > s.capacity {
		s.rows = s.rows[len(s.rows)-s.capacity:]
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, q Query) ([]models.AuditLog, int64, error) {
	q = q.normalized()

	s.mu.RLock()
	var match []models.AuditLog
	for _, r := range s.rows {
		if r.OwnerID != q.OwnerID ||
			(q.Action != "" && r.Action != q.Action) ||
			(q.Entity != "" && r.Entity != q.Entity) ||
			(q.From != nil && r.CreatedAt.Before(*q.From)) ||
			(q.To != nil && !r.CreatedAt.Before(*q.To)) {
			continue
		}
		match = append(match, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(match, func(i, j int) bool { return match[i].ID > match[j].ID })

	total := int64(len(match))
	from := q.offset()
	if from >= len(match) {
		return []models.AuditLog{}, total, nil
	}
	to := from + q.Limit
	if to > len(match) {
		to = len(match)
	}
	return match[from:to], total, nil
}
