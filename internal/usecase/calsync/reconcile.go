package calsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
)

// Locker grants at most one holder per key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

type Options struct {
	Concurrency int
	CallTimeout time.Duration
	Lookbehind  time.Duration
	Lookahead   time.Duration
	LockTTL     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 15 * time.Second
	}
	if o.Lookbehind <= 0 {
		o.Lookbehind = 30 * 24 * time.Hour
	}
	if o.Lookahead <= 0 {
		o.Lookahead = 180 * 24 * time.Hour
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Minute
	}
	return o
}

type action int

const (
	actionSkip action = iota
	actionCreate
	actionUpdate
)

type job struct {
	ev     models.CalendarEvent
	action action
}

// ======================================================
// RECONCILER
// ======================================================

// Reconciler pushes local events to the provider. Local state is
// authoritative; remote-only events are never imported.
type Reconciler struct {
	repo     domain.Repository
	conns    domain.SyncRepository
	provider domain.CalendarProvider
	locker   Locker
	audit    *audit.Dispatcher
	log      *slog.Logger
	opts     Options
	now      func() time.Time
}

func NewReconciler(
	repo domain.Repository,
	conns domain.SyncRepository,
	provider domain.CalendarProvider,
	locker Locker,
	audit *audit.Dispatcher,
	log *slog.Logger,
	opts Options,
) *Reconciler {
	return &Reconciler{
		repo:     repo,
		conns:    conns,
		provider: provider,
		locker:   locker,
		audit:    audit,
		log:      log,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// Reconcile runs one pass for the owner. Caller cancellation stops issuing
// new remote calls; calls already in flight finish and are written back.
// Events never issued count as skipped.
func (r *Reconciler) Reconcile(ctx context.Context, ownerID uint) (domain.SyncStats, error) {
	var stats domain.SyncStats

	if !r.provider.Configured() {
		return stats, domain.ErrSyncNotConfigured
	}

	conn, err := r.conns.GetConnection(ctx, ownerID, r.provider.Name())
	if err != nil {
		return stats, err
	}
	if !conn.Connected {
		return stats, domain.ErrSyncNotConnected
	}

	// --------------------------------------------------
	// One pass per owner at a time
	// --------------------------------------------------
	unlock, ok, err := r.locker.TryLock(ctx, lockKey(r.provider.Name(), ownerID), r.opts.LockTTL)
	if err != nil {
		return stats, fmt.Errorf("sync lock: %w", err)
	}
	if !ok {
		return stats, domain.ErrSyncInProgress
	}
	defer unlock()

	// Writes must survive caller cancellation.
	bg := context.WithoutCancel(ctx)

	now := r.now()
	from, to := now.Add(-r.opts.Lookbehind), now.Add(r.opts.Lookahead)

	local, err := r.repo.ListEventsForPeriod(ctx, ownerID, from, to)
	if err != nil {
		return stats, err
	}

	// --------------------------------------------------
	// Remote snapshot; failure aborts the pass
	// --------------------------------------------------
	listCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	remote, err := r.provider.ListEvents(listCtx, ownerID, from, to)
	cancel()
	if err != nil {
		stats.Errors = 1
		r.handleAuth(bg, ownerID, err)
		r.finish(bg, ownerID, stats)
		return stats, err
	}

	etags := make(map[string]string, len(remote))
	for _, re := range remote {
		etags[re.ID] = re.ETag
	}

	jobs := plan(local, etags)

	// --------------------------------------------------
	// Push
	// --------------------------------------------------
	var (
		mu          sync.Mutex
		authExpired bool
	)
	record := func(f func(s *domain.SyncStats)) {
		mu.Lock()
		f(&stats)
		mu.Unlock()
	}

	loc := r.ownerLocation(bg, ownerID)

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Concurrency)

	for i, j := range jobs {
		if ctx.Err() != nil {
			record(func(s *domain.SyncStats) { s.Skipped += len(jobs) - i })
			break
		}
		if j.action == actionSkip {
			record(func(s *domain.SyncStats) { s.Skipped++ })
			continue
		}

		g.Go(func() error {
			err := r.push(bg, ownerID, j, loc)
			switch {
			case err == nil && j.action == actionCreate:
				record(func(s *domain.SyncStats) { s.Created++ })
			case err == nil:
				record(func(s *domain.SyncStats) { s.Updated++ })
			default:
				r.log.Warn("sync push failed",
					slog.Uint64("owner_id", uint64(ownerID)),
					slog.String("event_id", j.ev.ID),
					slog.String("error", err.Error()),
				)
				record(func(s *domain.SyncStats) {
					s.Errors++
					if errors.Is(err, domain.ErrSyncAuthExpired) {
						authExpired = true
					}
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	if authExpired {
		r.handleAuth(bg, ownerID, domain.ErrSyncAuthExpired)
	}
	r.finish(bg, ownerID, stats)

	r.log.Info("sync pass finished",
		slog.Uint64("owner_id", uint64(ownerID)),
		slog.Int("created", stats.Created),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
	)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// plan decides the action of every local event against the remote etags.
func plan(local []models.CalendarEvent, remoteETags map[string]string) []job {
	jobs := make([]job, 0, len(local))
	for _, ev := range local {
		jobs = append(jobs, job{ev: ev, action: decide(ev, remoteETags)})
	}
	return jobs
}

func decide(ev models.CalendarEvent, remoteETags map[string]string) action {
	if !ev.HasExternal() {
		return actionCreate
	}

	etag, ok := remoteETags[*ev.ExternalID]
	if !ok {
		// Gone remotely: the local copy wins and is re-created.
		return actionCreate
	}

	if ev.ExternalETag == nil || *ev.ExternalETag != etag || ev.Dirty() {
		return actionUpdate
	}
	return actionSkip
}

func (r *Reconciler) push(ctx context.Context, ownerID uint, j job, loc *time.Location) error {
	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()

	payload := domain.EventPayload{
		LocalID:     j.ev.ID,
		Title:       j.ev.Title,
		Description: j.ev.Description,
		Start:       j.ev.Start,
		End:         j.ev.End,
		AllDay:      j.ev.AllDay,
		Location:    loc,
	}

	var (
		res domain.RemoteEvent
		err error
	)
	if j.action == actionCreate {
		res, err = r.provider.InsertEvent(callCtx, ownerID, payload)
	} else {
		res, err = r.provider.UpdateEvent(callCtx, ownerID, *j.ev.ExternalID, payload)
	}
	if err != nil {
		return err
	}

	return r.repo.MarkEventSynced(ctx, ownerID, j.ev.ID, res, j.ev.Revision)
}

func (r *Reconciler) handleAuth(ctx context.Context, ownerID uint, err error) {
	if !errors.Is(err, domain.ErrSyncAuthExpired) {
		return
	}
	if mErr := r.conns.MarkDisconnected(ctx, ownerID, r.provider.Name()); mErr != nil {
		r.log.Error("mark disconnected failed",
			slog.Uint64("owner_id", uint64(ownerID)),
			slog.String("error", mErr.Error()),
		)
	}
}

func (r *Reconciler) finish(ctx context.Context, ownerID uint, stats domain.SyncStats) {
	if err := r.conns.SaveSyncStats(ctx, ownerID, r.provider.Name(), r.now(), stats); err != nil {
		r.log.Error("save sync stats failed",
			slog.Uint64("owner_id", uint64(ownerID)),
			slog.String("error", err.Error()),
		)
	}

	r.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "calendar_synced",
		Entity:   "sync_connection",
		EntityID: r.provider.Name(),
		Metadata: stats,
	})
}

func (r *Reconciler) ownerLocation(ctx context.Context, ownerID uint) *time.Location {
	owner, err := r.repo.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return timezone.Location("")
	}
	return timezone.Location(owner.Timezone)
}

func lockKey(provider string, ownerID uint) string {
	return fmt.Sprintf("sync:%s:%d", provider, ownerID)
}

// ======================================================
// ALL OWNERS
// ======================================================

// ReconcileAll runs a pass for every connected owner, one after the other.
// Per-owner failures are logged and do not stop the sweep.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	conns, err := r.conns.ListConnected(ctx, r.provider.Name())
	if err != nil {
		return err
	}

	for _, c := range conns {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.Reconcile(ctx, c.OwnerID); err != nil {
			r.log.Warn("scheduled sync failed",
				slog.Uint64("owner_id", uint64(c.OwnerID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
