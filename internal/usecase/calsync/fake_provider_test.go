package calsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
)

// fakeProvider is an in-memory remote calendar.
type fakeProvider struct {
	mu      sync.Mutex
	events  map[string]domain.RemoteEvent
	seq     int
	inserts int
	updates int

	listErr  error
	failFor  map[string]error // keyed by local id
	hang     map[string]bool  // push calls wait for their deadline
	meet     map[string]string
	block    chan struct{}    // push calls wait on it when set
	started  chan struct{}    // receives one value per push call
	exchange []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		events:  make(map[string]domain.RemoteEvent),
		failFor: make(map[string]error),
		hang:    make(map[string]bool),
		meet:    make(map[string]string),
	}
}

func (p *fakeProvider) Name() string { return domain.ProviderGoogle }
func (p *fakeProvider) Configured() bool { return true }
func (p *fakeProvider) AuthURL(s string) string { return "https://accounts.example/auth?state=" + s }

func (p *fakeProvider) Exchange(_ context.Context, _ uint, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchange = append(p.exchange, code)
	return nil
}

func (p *fakeProvider) Disconnect(context.Context, uint) error { return nil }

func (p *fakeProvider) ListEvents(context.Context, uint, time.Time, time.Time) ([]domain.RemoteEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]domain.RemoteEvent, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev)
	}
	return out, nil
}

func (p *fakeProvider) enter(ctx context.Context, ev domain.EventPayload) error {
	p.mu.Lock()
	hang := p.hang[ev.LocalID]
	p.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}

	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failFor[ev.LocalID]
}

func (p *fakeProvider) InsertEvent(ctx context.Context, _ uint, ev domain.EventPayload) (domain.RemoteEvent, error) {
	if err := p.enter(ctx, ev); err != nil {
		return domain.RemoteEvent{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.inserts++
	re := domain.RemoteEvent{
		ID:          fmt.Sprintf("g-%d", p.seq),
		ETag:        fmt.Sprintf(`"%d"`, p.seq),
		MeetingLink: p.meet[ev.LocalID],
	}
	p.events[re.ID] = re
	return re, nil
}

func (p *fakeProvider) UpdateEvent(ctx context.Context, _ uint, id string, ev domain.EventPayload) (domain.RemoteEvent, error) {
	if err := p.enter(ctx, ev); err != nil {
		return domain.RemoteEvent{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.updates++
	re := domain.RemoteEvent{ID: id, ETag: fmt.Sprintf(`"%d"`, p.seq)}
	p.events[id] = re
	return re, nil
}

func (p *fakeProvider) DeleteEvent(_ context.Context, _ uint, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.events, id)
	return nil
}

// touchRemote simulates an edit made directly in the provider.
func (p *fakeProvider) touchRemote(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	ev := p.events[id]
	ev.ETag = fmt.Sprintf(`"%d"`, p.seq)
	p.events[id] = ev
}

func (p *fakeProvider) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inserts, p.updates
}
