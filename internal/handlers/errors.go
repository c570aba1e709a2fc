package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/usecase/account"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidWindow, http.StatusBadRequest},
	{domain.ErrInvalidEventType, http.StatusBadRequest},
	{domain.ErrInvalidEventTime, http.StatusBadRequest},
	{domain.ErrInvalidEventTitle, http.StatusBadRequest},
	{domain.ErrInvalidAvailability, http.StatusBadRequest},
	{domain.ErrInvalidSlot, http.StatusBadRequest},
	{domain.ErrInvalidProspect, http.StatusBadRequest},
	{domain.ErrInvalidState, http.StatusBadRequest},
	{account.ErrInvalidEmail, http.StatusBadRequest},
	{account.ErrInvalidEmailDomain, http.StatusBadRequest},
	{account.ErrInvalidSlug, http.StatusBadRequest},
	{account.ErrInvalidTimezone, http.StatusBadRequest},
	{account.ErrWeakPassword, http.StatusBadRequest},
	{account.ErrInvalidMinAdvance, http.StatusBadRequest},
	{account.ErrInvalidSlotMinutes, http.StatusBadRequest},

	{domain.ErrOwnerNotFound, http.StatusNotFound},
	{domain.ErrEventNotFound, http.StatusNotFound},
	{domain.ErrBookingNotFound, http.StatusNotFound},

	{domain.ErrSlotNoLongerAvailable, http.StatusConflict},
	{domain.ErrIllegalTransition, http.StatusConflict},
	{domain.ErrSyncInProgress, http.StatusConflict},
	{domain.ErrOwnerExists, http.StatusConflict},
	{domain.ErrSyncNotConnected, http.StatusConflict},

	{account.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrSyncAuthExpired, http.StatusUnauthorized},

	{domain.ErrSyncNotConfigured, http.StatusServiceUnavailable},
	{domain.ErrSyncProviderUnavailable, http.StatusServiceUnavailable},
	{domain.ErrMeetingLinkFailed, http.StatusServiceUnavailable},
}

var errorMessage = map[string]string{
	"invalid_window":            "End must be after start.",
	"invalid_event_type":        "Unknown event type.",
	"invalid_event_time":        "Event end must be after its start.",
	"invalid_event_title":       "Title is required.",
	"invalid_availability":      "Invalid weekly availability.",
	"invalid_slot":              "Requested interval is not a valid slot.",
	"invalid_prospect":          "Name and a valid email are required.",
	"invalid_state":             "Unknown booking state.",
	"invalid_email":             "Invalid email address.",
	"invalid_email_domain":      "The email domain does not resolve.",
	"invalid_slug":              "Slug may contain lowercase letters, digits and dashes.",
	"invalid_timezone":          "Unknown timezone.",
	"weak_password":             "Password is too short.",
	"invalid_min_advance":       "Minimum advance must be zero or positive (minutes).",
	"invalid_slot_minutes":      "Slot length must be between 5 and 480 minutes.",
	"owner_not_found":           "Calendar not found.",
	"event_not_found":           "Event not found.",
	"booking_not_found":         "Booking not found.",
	"slot_no_longer_available":  "This slot is no longer available.",
	"illegal_transition":        "Booking can no longer change state.",
	"sync_in_progress":          "A sync is already running.",
	"owner_already_exists":      "Email or slug already registered.",
	"sync_not_connected":        "Google Calendar is not connected.",
	"invalid_credentials":       "Invalid email or password.",
	"sync_auth_expired":         "Google authorization expired, reconnect the calendar.",
	"sync_not_configured":       "Google Calendar integration is not configured.",
	"sync_provider_unavailable": "Google Calendar is unavailable, retry later.",
	"meeting_link_failed":       "Could not create the meeting link.",
}

// writeError maps use case errors onto the JSON error envelope.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	status, body := resolveError(c, log, err)
	httperr.Write(c, status, body.Code, body.Message)
}

// resolveError picks the status and envelope for err. Unmapped errors are
// logged and become internal_error.
func resolveError(c *gin.Context, log *slog.Logger, err error) (int, httperr.HTTPError) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			code := httperr.CodeOf(e.err)
			return e.status, httperr.HTTPError{Code: code, Message: errorMessage[code]}
		}
	}

	log.Error("request failed",
		slog.String("path", c.FullPath()),
		slog.String("error", err.Error()),
	)
	return http.StatusInternalServerError, httperr.HTTPError{Code: "internal_error", Message: "Unexpected error."}
}
