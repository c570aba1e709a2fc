package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/infra/repository"
	"github.com/BruksfildServices01/club-calendar/internal/logger"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

const ownerID uint = 1

type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) inc(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hits == nil {
		h.hits = make(map[string]int)
	}
	h.hits[key]++
	return h.hits[key]
}

func (h *hitCounter) get(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func googleError(w http.ResponseWriter, status int) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": http.StatusText(status)},
	})
}

func newTestAdapter(t *testing.T, mux *http.ServeMux, expiry time.Time) (*Adapter, *repository.MemoryRepository) {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	repo := repository.NewMemoryRepository()
	require.NoError(t, repo.SaveConnection(context.Background(), &models.SyncConnection{
		OwnerID:      ownerID,
		Provider:     domain.ProviderGoogle,
		Connected:    true,
		CalendarID:   "primary",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		TokenExpiry:  expiry,
	}))

	a := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/calendar/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		APIEndpoint: srv.URL + "/",
		RevokeURL:   srv.URL + "/revoke",
		HTTPClient:  srv.Client(),
	}, repo, logger.Discard())
	a.retryDelay = 0

	return a, repo
}

func validExpiry() time.Time { return time.Now().Add(time.Hour) }

func TestAuthURL_OfflineWithState(t *testing.T) {
	a, _ := newTestAdapter(t, http.NewServeMux(), validExpiry())

	u := a.AuthURL("state-123")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "prompt=consent")
	assert.True(t, a.Configured())
}

func TestListEvents_PagesAndSkipsCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))

		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"id": "a", "etag": `"1"`},
					{"id": "gone", "etag": `"2"`, "status": "cancelled"},
				},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{{"id": "b", "etag": `"3"`, "hangoutLink": "https://meet.google.com/b"}},
		})
	})

	a, _ := newTestAdapter(t, mux, validExpiry())

	now := time.Now()
	events, err := a.ListEvents(context.Background(), ownerID, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, `"3"`, events[1].ETag)
	assert.Equal(t, "https://meet.google.com/b", events[1].MeetingLink)
}

func TestInsertEvent_TagsLocalID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body calendar.Event
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) || !assert.NotNil(t, body.ExtendedProperties) {
			googleError(w, http.StatusBadRequest)
			return
		}
		assert.Equal(t, "Demo", body.Summary)
		assert.Equal(t, "local-1", body.ExtendedProperties.Private[localIDProperty])
		assert.Equal(t, "2025-03-10T09:00:00Z", body.Start.DateTime)

		writeJSON(w, http.StatusOK, map[string]any{"id": "g-1", "etag": `"e1"`})
	})

	a, _ := newTestAdapter(t, mux, validExpiry())

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	re, err := a.InsertEvent(context.Background(), ownerID, domain.EventPayload{
		LocalID: "local-1",
		Title:   "Demo",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RemoteEvent{ID: "g-1", ETag: `"e1"`}, re)
}

func TestAllDayEventsUseDates(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	ge := toGoogle(domain.EventPayload{
		Start:    time.Date(2025, 3, 12, 0, 0, 0, 0, rome),
		End:      time.Date(2025, 3, 13, 0, 0, 0, 0, rome),
		AllDay:   true,
		Location: rome,
	})
	assert.Equal(t, "2025-03-12", ge.Start.Date)
	assert.Equal(t, "2025-03-13", ge.End.Date)
	assert.Empty(t, ge.Start.DateTime)
}

func TestTransientFailureIsRetriedOnce(t *testing.T) {
	var hits hitCounter
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events/g-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		if hits.inc("patch") == 1 {
			googleError(w, http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "g-1", "etag": `"e2"`})
	})

	a, _ := newTestAdapter(t, mux, validExpiry())

	re, err := a.UpdateEvent(context.Background(), ownerID, "g-1", domain.EventPayload{Title: "x", Start: time.Now(), End: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, `"e2"`, re.ETag)
	assert.Equal(t, 2, hits.get("patch"))
}

func TestPersistentFailureIsProviderUnavailable(t *testing.T) {
	var hits hitCounter
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		hits.inc("list")
		googleError(w, http.StatusTooManyRequests)
	})

	a, repo := newTestAdapter(t, mux, validExpiry())

	_, err := a.ListEvents(context.Background(), ownerID, time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrSyncProviderUnavailable)
	assert.Equal(t, 2, hits.get("list"))

	conn, err := repo.GetConnection(context.Background(), ownerID, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, conn.Connected)
}

func TestUnauthorizedDisconnects(t *testing.T) {
	var hits hitCounter
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		hits.inc("insert")
		googleError(w, http.StatusUnauthorized)
	})

	a, repo := newTestAdapter(t, mux, validExpiry())

	_, err := a.InsertEvent(context.Background(), ownerID, domain.EventPayload{Title: "x", Start: time.Now(), End: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrSyncAuthExpired)
	assert.Equal(t, 1, hits.get("insert"))

	conn, err := repo.GetConnection(context.Background(), ownerID, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, conn.Connected)

	_, err = a.InsertEvent(context.Background(), ownerID, domain.EventPayload{})
	assert.ErrorIs(t, err, domain.ErrSyncNotConnected)
}

func TestExpiredTokenIsRefreshedAndPersisted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access-2",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-2", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	})

	a, repo := newTestAdapter(t, mux, time.Now().Add(-time.Hour))

	_, err := a.ListEvents(context.Background(), ownerID, time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	conn, err := repo.GetConnection(context.Background(), ownerID, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "access-2", conn.AccessToken)
	assert.Equal(t, "refresh-1", conn.RefreshToken)
	assert.True(t, conn.Connected)
}

func TestRevokedRefreshTokenIsAuthExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Token has been expired or revoked.",
		})
	})

	a, repo := newTestAdapter(t, mux, time.Now().Add(-time.Hour))

	_, err := a.ListEvents(context.Background(), ownerID, time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrSyncAuthExpired)

	conn, err := repo.GetConnection(context.Background(), ownerID, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, conn.Connected)
}

func TestCreateMeeting_RequestsHangoutsMeet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("conferenceDataVersion"))

		var body calendar.Event
		ok := assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) &&
			assert.NotNil(t, body.ConferenceData) &&
			assert.NotNil(t, body.ConferenceData.CreateRequest) &&
			assert.Len(t, body.Attendees, 1)
		if !ok {
			googleError(w, http.StatusBadRequest)
			return
		}
		assert.Equal(t, "hangoutsMeet", body.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
		assert.NotEmpty(t, body.ConferenceData.CreateRequest.RequestId)
		assert.Equal(t, "giulia@tennisclub.it", body.Attendees[0].Email)

		writeJSON(w, http.StatusOK, map[string]any{
			"id":          "g-meet",
			"etag":        `"m1"`,
			"hangoutLink": "https://meet.google.com/abc-defg-hij",
		})
	})

	a, _ := newTestAdapter(t, mux, validExpiry())

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	link, err := a.CreateMeeting(context.Background(), ownerID, domain.MeetingRequest{
		Title:         "Demo: Giulia",
		Start:         start,
		End:           start.Add(time.Hour),
		AttendeeEmail: "giulia@tennisclub.it",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingLink{
		URL:             "https://meet.google.com/abc-defg-hij",
		ProviderEventID: "g-meet",
		ETag:            `"m1"`,
	}, link)
}

func TestCreateMeeting_NoLinkReturned(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "g-x", "etag": `"x"`})
	})

	a, _ := newTestAdapter(t, mux, validExpiry())

	_, err := a.CreateMeeting(context.Background(), ownerID, domain.MeetingRequest{Start: time.Now(), End: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrMeetingLinkFailed)
}

func TestDeleteEvent_MissingIsFine(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events/g-404", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		googleError(w, http.StatusGone)
	})

	a, _ := newTestAdapter(t, mux, validExpiry())
	assert.NoError(t, a.DeleteEvent(context.Background(), ownerID, "g-404"))
}

func TestExchangeStoresConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "code-xyz", r.Form.Get("code"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "fresh",
			"refresh_token": "fresh-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	a, repo := newTestAdapter(t, mux, validExpiry())
	require.NoError(t, a.Exchange(context.Background(), 7, "code-xyz"))

	conn, err := repo.GetConnection(context.Background(), 7, domain.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, conn.Connected)
	assert.Equal(t, "fresh-refresh", conn.RefreshToken)
	assert.Equal(t, "primary", conn.CalendarID)
}

func TestDisconnectRevokesAndClears(t *testing.T) {
	revoked := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		revoked <- r.Form.Get("token")
		w.WriteHeader(http.StatusOK)
	})

	a, repo := newTestAdapter(t, mux, validExpiry())
	require.NoError(t, a.Disconnect(context.Background(), ownerID))
	assert.Equal(t, "refresh-1", <-revoked)

	_, err := repo.GetConnection(context.Background(), ownerID, domain.ProviderGoogle)
	assert.ErrorIs(t, err, domain.ErrSyncNotConnected)

	// Disconnecting twice is a no-op.
	assert.NoError(t, a.Disconnect(context.Background(), ownerID))
}

func TestNotConfigured(t *testing.T) {
	a := New(Config{}, repository.NewMemoryRepository(), logger.Discard())
	assert.False(t, a.Configured())

	_, err := a.ListEvents(context.Background(), ownerID, time.Now(), time.Now())
	assert.ErrorIs(t, err, domain.ErrSyncNotConfigured)
	assert.True(t, strings.HasPrefix(a.AuthURL("s"), "https://accounts.google.com/"))
}
