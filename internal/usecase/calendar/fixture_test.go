package calendar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/infra/repository"
	"github.com/BruksfildServices01/club-calendar/internal/logger"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type fixture struct {
	ctx   context.Context
	repo  *repository.MemoryRepository
	owner *models.Owner
	loc   *time.Location
	audit *audit.Dispatcher
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()

	owner := &models.Owner{
		Name:              "Padel Club Roma",
		Email:             "owner@padelclub.it",
		Slug:              "padel-club",
		Timezone:          "Europe/Rome",
		MinAdvanceMinutes: 120,
		SlotMinutes:       60,
	}
	require.NoError(t, repo.CreateOwner(ctx, owner))

	var open []domain.DayWindow
	for d := 0; d < 5; d++ {
		open = append(open, domain.DayWindow{Weekday: d, StartTime: "09:00", EndTime: "18:00"})
	}
	rules, err := domain.BuildTemplate(owner.ID, open)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceAvailability(ctx, owner.ID, rules))

	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	d := audit.NewDispatcher(audit.NewLogSink(logger.Discard()), logger.Discard())
	t.Cleanup(d.Close)

	return &fixture{
		ctx:   ctx,
		repo:  repo,
		owner: owner,
		loc:   loc,
		audit: d,
		now:   time.Date(2025, time.March, 1, 8, 0, 0, 0, loc),
	}
}

// at is a March 2025 instant in Rome.
func (f *fixture) at(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, f.loc)
}

func (f *fixture) connectGoogle(t *testing.T) {
	t.Helper()
	require.NoError(t, f.repo.SaveConnection(f.ctx, &models.SyncConnection{
		OwnerID:     f.owner.ID,
		Provider:    domain.ProviderGoogle,
		Connected:   true,
		AccessToken: "token",
	}))
}

func (f *fixture) createBooking(meetings domain.MeetingLinkProvisioner, cleanup *RemoteCleanup, opts BookingOptions) *CreateBooking {
	uc := NewCreateBooking(f.repo, f.repo, meetings, cleanup, nil, f.audit, logger.Discard(), opts)
	uc.now = func() time.Time { return f.now }
	return uc
}

func (f *fixture) bookingInput(day, hour int) CreateBookingInput {
	return CreateBookingInput{
		OwnerID:       f.owner.ID,
		Start:         f.at(day, hour),
		End:           f.at(day, hour+1),
		ProspectName:  "Giulia Bianchi",
		ProspectEmail: "giulia@tennisclub.it",
	}
}

// --------------------------------------------------
// Fakes
// --------------------------------------------------

type mockMeetings struct {
	mock.Mock
}

func (m *mockMeetings) CreateMeeting(ctx context.Context, ownerID uint, req domain.MeetingRequest) (domain.MeetingLink, error) {
	args := m.Called(ctx, ownerID, req)
	return args.Get(0).(domain.MeetingLink), args.Error(1)
}

// deleteRecorder is a provider that only records remote deletes.
type deleteRecorder struct {
	mu      sync.Mutex
	deleted []string
}

func (p *deleteRecorder) Name() string { return domain.ProviderGoogle }
func (p *deleteRecorder) Configured() bool { return true }
func (p *deleteRecorder) AuthURL(string) string { return "" }
func (p *deleteRecorder) Exchange(context.Context, uint, string) error { return nil }
func (p *deleteRecorder) Disconnect(context.Context, uint) error { return nil }

func (p *deleteRecorder) ListEvents(context.Context, uint, time.Time, time.Time) ([]domain.RemoteEvent, error) {
	return nil, nil
}

func (p *deleteRecorder) InsertEvent(context.Context, uint, domain.EventPayload) (domain.RemoteEvent, error) {
	return domain.RemoteEvent{}, nil
}

func (p *deleteRecorder) UpdateEvent(context.Context, uint, string, domain.EventPayload) (domain.RemoteEvent, error) {
	return domain.RemoteEvent{}, nil
}

func (p *deleteRecorder) DeleteEvent(_ context.Context, _ uint, providerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, providerID)
	return nil
}

func (p *deleteRecorder) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}
