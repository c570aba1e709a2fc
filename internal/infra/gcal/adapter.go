package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gax "github.com/googleapis/gax-go/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

const (
	defaultRevokeURL = "https://oauth2.googleapis.com/revoke"
	localIDProperty  = "club_calendar_id"
	dateLayout       = "2006-01-02"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CalendarID   string

	// Overrides, used by tests.
	Endpoint    oauth2.Endpoint
	APIEndpoint string
	RevokeURL   string
	HTTPClient  *http.Client
}

// Adapter talks to Google Calendar on behalf of owners whose OAuth tokens
// live in the SyncConnection store.
type Adapter struct {
	cfg        Config
	oauth      *oauth2.Config
	conns      domain.SyncRepository
	log        *slog.Logger
	retryDelay time.Duration
}

var (
	_ domain.CalendarProvider       = (*Adapter)(nil)
	_ domain.MeetingLinkProvisioner = (*Adapter)(nil)
)

func New(cfg Config, conns domain.SyncRepository, log *slog.Logger) *Adapter {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = defaultRevokeURL
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}

	return &Adapter{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{calendar.CalendarEventsScope},
		},
		conns:      conns,
		log:        log,
		retryDelay: 500 * time.Millisecond,
	}
}

func (a *Adapter) Name() string {
	return domain.ProviderGoogle
}

func (a *Adapter) Configured() bool {
	return a.cfg.ClientID != "" && a.cfg.ClientSecret != ""
}

// ======================================================
// OAuth
// ======================================================

func (a *Adapter) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (a *Adapter) Exchange(ctx context.Context, ownerID uint, code string) error {
	var tok *oauth2.Token
	err := a.withRetry(ctx, func(ctx context.Context) error {
		var err error
		tok, err = a.oauth.Exchange(a.httpContext(ctx), code)
		return err
	})
	if err != nil {
		// A rejected code is not a revoked connection; keep the cursor as is.
		return translate("exchange", err)
	}

	return a.conns.SaveConnection(ctx, &models.SyncConnection{
		OwnerID:      ownerID,
		Provider:     domain.ProviderGoogle,
		Connected:    true,
		CalendarID:   a.cfg.CalendarID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		TokenExpiry:  tok.Expiry,
	})
}

// Disconnect revokes the token best-effort and clears the connection.
func (a *Adapter) Disconnect(ctx context.Context, ownerID uint) error {
	conn, err := a.conns.GetConnection(ctx, ownerID, domain.ProviderGoogle)
	if errors.Is(err, domain.ErrSyncNotConnected) {
		return nil
	}
	if err != nil {
		return err
	}

	token := conn.RefreshToken
	if token == "" {
		token = conn.AccessToken
	}
	if token != "" {
		if err := a.revoke(ctx, token); err != nil {
			a.log.Warn("google token revoke failed",
				slog.Uint64("owner_id", uint64(ownerID)),
				slog.String("error", err.Error()),
			)
		}
	}

	return a.conns.ClearConnection(ctx, ownerID, domain.ProviderGoogle)
}

func (a *Adapter) revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.baseClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke failed with status %d", resp.StatusCode)
	}
	return nil
}

// ======================================================
// Events
// ======================================================

func (a *Adapter) ListEvents(ctx context.Context, ownerID uint, from, to time.Time) ([]domain.RemoteEvent, error) {
	svc, calID, err := a.service(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var (
		out       []domain.RemoteEvent
		pageToken string
	)
	for {
		var page *calendar.Events
		err := a.withRetry(ctx, func(ctx context.Context) error {
			call := svc.Events.List(calID).
				TimeMin(from.Format(time.RFC3339)).
				TimeMax(to.Format(time.RFC3339)).
				SingleEvents(true).
				MaxResults(250).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return nil, a.fail(ctx, ownerID, "list events", err)
		}

		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			out = append(out, domain.RemoteEvent{
				ID:          item.Id,
				ETag:        item.Etag,
				MeetingLink: meetingURL(item),
			})
		}

		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (a *Adapter) InsertEvent(ctx context.Context, ownerID uint, ev domain.EventPayload) (domain.RemoteEvent, error) {
	svc, calID, err := a.service(ctx, ownerID)
	if err != nil {
		return domain.RemoteEvent{}, err
	}

	var created *calendar.Event
	err = a.withRetry(ctx, func(ctx context.Context) error {
		var err error
		created, err = svc.Events.Insert(calID, toGoogle(ev)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return domain.RemoteEvent{}, a.fail(ctx, ownerID, "insert event", err)
	}

	return domain.RemoteEvent{ID: created.Id, ETag: created.Etag, MeetingLink: meetingURL(created)}, nil
}

// UpdateEvent patches, so conference data attached remotely survives.
func (a *Adapter) UpdateEvent(ctx context.Context, ownerID uint, providerID string, ev domain.EventPayload) (domain.RemoteEvent, error) {
	svc, calID, err := a.service(ctx, ownerID)
	if err != nil {
		return domain.RemoteEvent{}, err
	}

	var updated *calendar.Event
	err = a.withRetry(ctx, func(ctx context.Context) error {
		var err error
		updated, err = svc.Events.Patch(calID, providerID, toGoogle(ev)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return domain.RemoteEvent{}, a.fail(ctx, ownerID, "update event", err)
	}

	return domain.RemoteEvent{ID: updated.Id, ETag: updated.Etag, MeetingLink: meetingURL(updated)}, nil
}

// DeleteEvent treats an already missing event as deleted.
func (a *Adapter) DeleteEvent(ctx context.Context, ownerID uint, providerID string) error {
	svc, calID, err := a.service(ctx, ownerID)
	if err != nil {
		return err
	}

	err = a.withRetry(ctx, func(ctx context.Context) error {
		return svc.Events.Delete(calID, providerID).Context(ctx).Do()
	})
	if classify(err) == failNotFound {
		return nil
	}
	if err != nil {
		return a.fail(ctx, ownerID, "delete event", err)
	}
	return nil
}

// ======================================================
// Meet
// ======================================================

// CreateMeeting inserts an event with a Google Meet conference and invites
// the attendee.
func (a *Adapter) CreateMeeting(ctx context.Context, ownerID uint, req domain.MeetingRequest) (domain.MeetingLink, error) {
	svc, calID, err := a.service(ctx, ownerID)
	if err != nil {
		return domain.MeetingLink{}, err
	}

	ge := toGoogle(domain.EventPayload{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Location:    req.Location,
	})
	if req.AttendeeEmail != "" {
		ge.Attendees = []*calendar.EventAttendee{{Email: req.AttendeeEmail}}
	}
	ge.ConferenceData = &calendar.ConferenceData{
		CreateRequest: &calendar.CreateConferenceRequest{
			RequestId:             uuid.NewString(),
			ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
		},
	}

	var created *calendar.Event
	err = a.withRetry(ctx, func(ctx context.Context) error {
		var err error
		created, err = svc.Events.Insert(calID, ge).
			ConferenceDataVersion(1).
			SendUpdates("all").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return domain.MeetingLink{}, a.fail(ctx, ownerID, "create meeting", err)
	}

	link := meetingURL(created)
	if link == "" {
		return domain.MeetingLink{}, domain.ErrMeetingLinkFailed
	}

	return domain.MeetingLink{URL: link, ProviderEventID: created.Id, ETag: created.Etag}, nil
}

// ======================================================
// Plumbing
// ======================================================

// withRetry retries once on transient failures while ctx is alive.
func (a *Adapter) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	err := gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		last = fn(ctx)
		return last
	}, gax.WithRetry(func() gax.Retryer {
		return &onceRetryer{delay: a.retryDelay}
	}))
	if err != nil {
		return last
	}
	return nil
}

// onceRetryer allows a single retry, only for transient failures.
type onceRetryer struct {
	delay time.Duration
	used  bool
}

func (r *onceRetryer) Retry(err error) (time.Duration, bool) {
	if r.used || classify(err) != failTransient {
		return 0, false
	}
	r.used = true
	return r.delay, true
}

// fail translates err and clears the connection flag on auth failures.
func (a *Adapter) fail(ctx context.Context, ownerID uint, op string, err error) error {
	if classify(err) == failAuth {
		if mErr := a.conns.MarkDisconnected(context.WithoutCancel(ctx), ownerID, domain.ProviderGoogle); mErr != nil {
			a.log.Error("mark disconnected failed",
				slog.Uint64("owner_id", uint64(ownerID)),
				slog.String("error", mErr.Error()),
			)
		}
	}
	return translate(op, err)
}

func (a *Adapter) baseClient() *http.Client {
	if a.cfg.HTTPClient != nil {
		return a.cfg.HTTPClient
	}
	return http.DefaultClient
}

func (a *Adapter) httpContext(ctx context.Context) context.Context {
	if a.cfg.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, a.cfg.HTTPClient)
	}
	return ctx
}

// service builds a client bound to the owner's token. Refreshed tokens are
// written back to the connection.
func (a *Adapter) service(ctx context.Context, ownerID uint) (*calendar.Service, string, error) {
	if !a.Configured() {
		return nil, "", domain.ErrSyncNotConfigured
	}

	conn, err := a.conns.GetConnection(ctx, ownerID, domain.ProviderGoogle)
	if err != nil {
		return nil, "", err
	}
	if !conn.Connected {
		return nil, "", domain.ErrSyncNotConnected
	}

	tok := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    conn.TokenType,
		Expiry:       conn.TokenExpiry,
	}

	// The token source outlives the call that created it.
	base := a.httpContext(context.WithoutCancel(ctx))
	src := &persistingSource{
		base: a.oauth.TokenSource(base, tok),
		last: tok.AccessToken,
		save: func(t *oauth2.Token) { a.saveToken(base, *conn, t) },
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(base, src))}
	if a.cfg.APIEndpoint != "" {
		opts = append(opts, option.WithEndpoint(a.cfg.APIEndpoint))
	}

	svc, err := calendar.NewService(base, opts...)
	if err != nil {
		return nil, "", err
	}

	calID := conn.CalendarID
	if calID == "" {
		calID = a.cfg.CalendarID
	}
	return svc, calID, nil
}

func (a *Adapter) saveToken(ctx context.Context, conn models.SyncConnection, t *oauth2.Token) {
	conn.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		conn.RefreshToken = t.RefreshToken
	}
	conn.TokenType = t.TokenType
	conn.TokenExpiry = t.Expiry

	if err := a.conns.SaveConnection(ctx, &conn); err != nil {
		a.log.Error("persist refreshed token failed",
			slog.Uint64("owner_id", uint64(conn.OwnerID)),
			slog.String("error", err.Error()),
		)
	}
}

type persistingSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.save(tok)
	}
	return tok, nil
}

// ======================================================
// Mapping
// ======================================================

func toGoogle(ev domain.EventPayload) *calendar.Event {
	ge := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
	}
	if ev.LocalID != "" {
		ge.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{localIDProperty: ev.LocalID},
		}
	}

	if ev.AllDay {
		loc := ev.Location
		if loc == nil {
			loc = time.UTC
		}
		ge.Start = &calendar.EventDateTime{Date: ev.Start.In(loc).Format(dateLayout)}
		ge.End = &calendar.EventDateTime{Date: ev.End.In(loc).Format(dateLayout)}
		return ge
	}

	ge.Start = &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)}
	ge.End = &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339)}
	return ge
}

func meetingURL(ev *calendar.Event) string {
	if ev == nil {
		return ""
	}
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}
