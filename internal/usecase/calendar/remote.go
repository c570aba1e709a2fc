package calendar

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
)

const remoteCleanupTimeout = 15 * time.Second

// RemoteCleanup deletes provider copies of removed local events. Calls are
// fire-and-forget; failures are only logged.
type RemoteCleanup struct {
	provider domain.CalendarProvider
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewRemoteCleanup accepts a nil provider, which disables remote deletes.
func NewRemoteCleanup(provider domain.CalendarProvider, log *slog.Logger) *RemoteCleanup {
	return &RemoteCleanup{provider: provider, log: log}
}

func (r *RemoteCleanup) DeleteAsync(ownerID uint, externalID string) {
	if r == nil || r.provider == nil || !r.provider.Configured() || externalID == "" {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), remoteCleanupTimeout)
		defer cancel()

		if err := r.provider.DeleteEvent(ctx, ownerID, externalID); err != nil {
			r.log.Warn("remote event delete failed",
				slog.Uint64("owner_id", uint64(ownerID)),
				slog.String("external_id", externalID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until pending deletes are done.
func (r *RemoteCleanup) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
