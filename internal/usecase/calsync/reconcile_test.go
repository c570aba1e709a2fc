package calsync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/infra/lock"
	"github.com/BruksfildServices01/club-calendar/internal/infra/repository"
	"github.com/BruksfildServices01/club-calendar/internal/logger"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type syncFixture struct {
	ctx      context.Context
	repo     *repository.MemoryRepository
	provider *fakeProvider
	locker   *lock.LocalLocker
	owner    *models.Owner
	rec      *Reconciler
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemoryRepository()
	owner := &models.Owner{Name: "Club", Email: "owner@club.it", Slug: "club", Timezone: "Europe/Rome"}
	require.NoError(t, repo.CreateOwner(ctx, owner))
	require.NoError(t, repo.SaveConnection(ctx, &models.SyncConnection{
		OwnerID:   owner.ID,
		Provider:  domain.ProviderGoogle,
		Connected: true,
	}))

	d := audit.NewDispatcher(audit.NewLogSink(logger.Discard()), logger.Discard())
	t.Cleanup(d.Close)

	provider := newFakeProvider()
	locker := lock.NewLocalLocker()
	rec := NewReconciler(repo, repo, provider, locker, d, logger.Discard(), Options{Concurrency: 2})
	rec.now = func() time.Time { return time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC) }

	return &syncFixture{ctx: ctx, repo: repo, provider: provider, locker: locker, owner: owner, rec: rec}
}

func (f *syncFixture) addEvents(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		start := time.Date(2025, time.March, 10, 9+i, 0, 0, 0, time.UTC)
		ev := &models.CalendarEvent{
			ID:       uuid.NewString(),
			OwnerID:  f.owner.ID,
			Title:    "Demo",
			Type:     string(domain.EventDemo),
			Start:    start,
			End:      start.Add(time.Hour),
			Revision: 1,
		}
		require.NoError(t, f.repo.CreateEvent(f.ctx, ev))
		ids = append(ids, ev.ID)
	}
	return ids
}

func (f *syncFixture) event(t *testing.T, id string) *models.CalendarEvent {
	t.Helper()
	ev, err := f.repo.GetEvent(f.ctx, f.owner.ID, id)
	require.NoError(t, err)
	return ev
}

func TestReconcile_CreatesThenIsIdempotent(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 3)

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{Created: 3}, stats)

	for _, id := range ids {
		ev := f.event(t, id)
		assert.True(t, ev.HasExternal())
		assert.False(t, ev.Dirty())
	}

	stats, err = f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{Skipped: 3}, stats)

	inserts, updates := f.provider.counts()
	assert.Equal(t, 3, inserts)
	assert.Equal(t, 0, updates)

	conn, err := f.repo.GetConnection(f.ctx, f.owner.ID, domain.ProviderGoogle)
	require.NoError(t, err)
	require.NotNil(t, conn.LastSyncAt)
	assert.Equal(t, 3, conn.LastSkipped)
	assert.Equal(t, 0, conn.LastCreated)
}

func TestReconcile_RemoteChangeIsOverwritten(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 3)
	_, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)

	f.provider.touchRemote(*f.event(t, ids[1]).ExternalID)

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{Updated: 1, Skipped: 2}, stats)

	stats, err = f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Updated)
}

func TestReconcile_LocalEditIsPushed(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 2)
	_, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)

	ev := f.event(t, ids[0])
	ev.Title = "Demo with board"
	require.NoError(t, f.repo.UpdateEvent(f.ctx, ev))

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{Updated: 1, Skipped: 1}, stats)
	assert.False(t, f.event(t, ids[0]).Dirty())
}

func TestReconcile_RemoteDeletionIsRecreated(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 2)
	_, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)

	oldID := *f.event(t, ids[0]).ExternalID
	require.NoError(t, f.provider.DeleteEvent(f.ctx, f.owner.ID, oldID))

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{Created: 1, Skipped: 1}, stats)
	assert.NotEqual(t, oldID, *f.event(t, ids[0]).ExternalID)
}

func TestReconcile_RemoteOnlyEventsAreNotImported(t *testing.T) {
	f := newSyncFixture(t)
	f.provider.events["foreign"] = domain.RemoteEvent{ID: "foreign", ETag: "x"}

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{}, stats)

	local, err := f.repo.ListEventsForPeriod(f.ctx, f.owner.ID, time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestReconcile_OneFailureDoesNotStopTheBatch(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 3)
	f.provider.failFor[ids[1]] = domain.ErrSyncProviderUnavailable

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{Created: 2, Errors: 1}, stats)
	assert.False(t, f.event(t, ids[1]).HasExternal())

	delete(f.provider.failFor, ids[1])
	stats, err = f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStats{Created: 1, Skipped: 2}, stats)
}

func TestReconcile_StuckCallTimesOut(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 3)
	f.provider.hang[ids[0]] = true

	d := audit.NewDispatcher(audit.NewLogSink(logger.Discard()), logger.Discard())
	t.Cleanup(d.Close)
	rec := NewReconciler(f.repo, f.repo, f.provider, f.locker, d, logger.Discard(), Options{
		Concurrency: 1,
		CallTimeout: 50 * time.Millisecond,
	})
	rec.now = f.rec.now

	started := time.Now()
	stats, err := rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, domain.SyncStats{Created: 2, Errors: 1}, stats)
	assert.False(t, f.event(t, ids[0]).HasExternal())
	assert.True(t, f.event(t, ids[1]).HasExternal())
	assert.True(t, f.event(t, ids[2]).HasExternal())
}

func TestReconcile_StoresRemoteMeetingLink(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 2)
	f.provider.meet[ids[0]] = "https://meet.google.com/abc-defg-hij"

	_, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)

	withLink := f.event(t, ids[0])
	require.NotNil(t, withLink.MeetingLink)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", *withLink.MeetingLink)
	assert.Nil(t, f.event(t, ids[1]).MeetingLink)
}

func TestReconcile_AuthExpiredDisconnects(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 1)
	f.provider.failFor[ids[0]] = domain.ErrSyncAuthExpired

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)

	conn, err := f.repo.GetConnection(f.ctx, f.owner.ID, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, conn.Connected)

	_, err = f.rec.Reconcile(f.ctx, f.owner.ID)
	assert.ErrorIs(t, err, domain.ErrSyncNotConnected)
}

func TestReconcile_ListFailureAbortsAndRecords(t *testing.T) {
	f := newSyncFixture(t)
	f.addEvents(t, 2)
	f.provider.listErr = domain.ErrSyncProviderUnavailable

	stats, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	assert.ErrorIs(t, err, domain.ErrSyncProviderUnavailable)
	assert.Equal(t, domain.SyncStats{Errors: 1}, stats)

	conn, err := f.repo.GetConnection(f.ctx, f.owner.ID, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, 1, conn.LastErrors)
	assert.True(t, conn.Connected)

	inserts, _ := f.provider.counts()
	assert.Zero(t, inserts)
}

func TestReconcile_ConcurrentPassIsRejected(t *testing.T) {
	f := newSyncFixture(t)

	unlock, ok, err := f.locker.TryLock(f.ctx, lockKey(domain.ProviderGoogle, f.owner.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.rec.Reconcile(f.ctx, f.owner.ID)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	unlock()
	_, err = f.rec.Reconcile(f.ctx, f.owner.ID)
	assert.NoError(t, err)
}

func TestReconcile_NotConnected(t *testing.T) {
	f := newSyncFixture(t)
	require.NoError(t, f.repo.ClearConnection(f.ctx, f.owner.ID, domain.ProviderGoogle))

	_, err := f.rec.Reconcile(f.ctx, f.owner.ID)
	assert.ErrorIs(t, err, domain.ErrSyncNotConnected)
}

func TestReconcile_CancellationLetsInFlightFinish(t *testing.T) {
	f := newSyncFixture(t)
	ids := f.addEvents(t, 3)

	f.rec.opts.Concurrency = 1
	f.provider.block = make(chan struct{})
	f.provider.started = make(chan struct{}, len(ids))

	ctx, cancel := context.WithCancel(f.ctx)
	type result struct {
		stats domain.SyncStats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := f.rec.Reconcile(ctx, f.owner.ID)
		done <- result{s, err}
	}()

	<-f.provider.started
	cancel()
	close(f.provider.block)

	res := <-done
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.Zero(t, res.stats.Errors)
	assert.GreaterOrEqual(t, res.stats.Skipped, 1)
	assert.Equal(t, 3, res.stats.Created+res.stats.Skipped)

	assert.True(t, f.event(t, ids[0]).HasExternal(), "in-flight push must be written back")
}

func TestReconcileAll_SweepsConnectedOwners(t *testing.T) {
	f := newSyncFixture(t)
	f.addEvents(t, 2)

	other := &models.Owner{Name: "Other", Email: "other@club.it", Slug: "other"}
	require.NoError(t, f.repo.CreateOwner(f.ctx, other))
	require.NoError(t, f.repo.SaveConnection(f.ctx, &models.SyncConnection{
		OwnerID: other.ID, Provider: domain.ProviderGoogle, Connected: false,
	}))

	require.NoError(t, f.rec.ReconcileAll(f.ctx))

	inserts, _ := f.provider.counts()
	assert.Equal(t, 2, inserts)

	conn, err := f.repo.GetConnection(f.ctx, other.ID, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Nil(t, conn.LastSyncAt)
}
