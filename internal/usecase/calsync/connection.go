package calsync

import (
	"context"
	"errors"
	"time"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
)

// ======================================================
// STATUS
// ======================================================

type StatusView struct {
	Configured bool              `json:"configured"`
	Connected  bool              `json:"connected"`
	CalendarID string            `json:"calendar_id,omitempty"`
	LastSyncAt *time.Time        `json:"last_sync_at"`
	LastStats  *domain.SyncStats `json:"last_stats"`
}

type Status struct {
	conns    domain.SyncRepository
	provider domain.CalendarProvider
}

func NewStatus(conns domain.SyncRepository, provider domain.CalendarProvider) *Status {
	return &Status{conns: conns, provider: provider}
}

func (uc *Status) Execute(ctx context.Context, ownerID uint) (StatusView, error) {
	view := StatusView{Configured: uc.provider.Configured()}

	conn, err := uc.conns.GetConnection(ctx, ownerID, uc.provider.Name())
	if errors.Is(err, domain.ErrSyncNotConnected) {
		return view, nil
	}
	if err != nil {
		return view, err
	}

	view.Connected = conn.Connected
	view.CalendarID = conn.CalendarID
	view.LastSyncAt = conn.LastSyncAt
	if conn.LastSyncAt != nil {
		view.LastStats = &domain.SyncStats{
			Created: conn.LastCreated,
			Updated: conn.LastUpdated,
			Skipped: conn.LastSkipped,
			Errors:  conn.LastErrors,
		}
	}
	return view, nil
}

// ======================================================
// CONNECT
// ======================================================

type Connect struct {
	provider domain.CalendarProvider
}

func NewConnect(provider domain.CalendarProvider) *Connect {
	return &Connect{provider: provider}
}

// Execute returns the consent URL. state must let the callback find the owner.
func (uc *Connect) Execute(state string) (string, error) {
	if !uc.provider.Configured() {
		return "", domain.ErrSyncNotConfigured
	}
	return uc.provider.AuthURL(state), nil
}

type CompleteConnect struct {
	provider domain.CalendarProvider
	audit    *audit.Dispatcher
}

func NewCompleteConnect(provider domain.CalendarProvider, audit *audit.Dispatcher) *CompleteConnect {
	return &CompleteConnect{provider: provider, audit: audit}
}

// Execute trades the authorization code for a token and stores it.
func (uc *CompleteConnect) Execute(ctx context.Context, ownerID uint, code string) error {
	if !uc.provider.Configured() {
		return domain.ErrSyncNotConfigured
	}
	if code == "" {
		return domain.ErrSyncAuthExpired
	}

	if err := uc.provider.Exchange(ctx, ownerID, code); err != nil {
		return err
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "calendar_connected",
		Entity:   "sync_connection",
		EntityID: uc.provider.Name(),
	})
	return nil
}

// ======================================================
// DISCONNECT
// ======================================================

type Disconnect struct {
	provider domain.CalendarProvider
	audit    *audit.Dispatcher
}

func NewDisconnect(provider domain.CalendarProvider, audit *audit.Dispatcher) *Disconnect {
	return &Disconnect{provider: provider, audit: audit}
}

// Execute revokes the token and clears the connection. Local events keep
// their external ids.
func (uc *Disconnect) Execute(ctx context.Context, ownerID uint) error {
	if err := uc.provider.Disconnect(ctx, ownerID); err != nil {
		return err
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "calendar_disconnected",
		Entity:   "sync_connection",
		EntityID: uc.provider.Name(),
	})
	return nil
}
