package calendar

import "github.com/BruksfildServices01/club-calendar/internal/httperr"

// ===============================
// Validation
// ===============================

var (
	ErrInvalidWindow       = httperr.ErrBusiness("invalid_window")
	ErrInvalidEventType    = httperr.ErrBusiness("invalid_event_type")
	ErrInvalidEventTime    = httperr.ErrBusiness("invalid_event_time")
	ErrInvalidAvailability = httperr.ErrBusiness("invalid_availability")
	ErrInvalidSlot         = httperr.ErrBusiness("invalid_slot")
	ErrInvalidEventTitle   = httperr.ErrBusiness("invalid_event_title")
	ErrInvalidProspect     = httperr.ErrBusiness("invalid_prospect")
	ErrInvalidState        = httperr.ErrBusiness("invalid_state")
)

// ===============================
// Conflicts
// ===============================

var (
	ErrSlotNoLongerAvailable = httperr.ErrBusiness("slot_no_longer_available")
	ErrIllegalTransition     = httperr.ErrBusiness("illegal_transition")
	ErrSyncInProgress        = httperr.ErrBusiness("sync_in_progress")
	ErrOwnerExists           = httperr.ErrBusiness("owner_already_exists")
)

// ===============================
// External dependencies
// ===============================

var (
	ErrSyncProviderUnavailable = httperr.ErrBusiness("sync_provider_unavailable")
	ErrSyncAuthExpired         = httperr.ErrBusiness("sync_auth_expired")
	ErrSyncNotConnected        = httperr.ErrBusiness("sync_not_connected")
	ErrSyncNotConfigured       = httperr.ErrBusiness("sync_not_configured")
	ErrMeetingLinkFailed       = httperr.ErrBusiness("meeting_link_failed")
)

// ===============================
// Not found
// ===============================

var (
	ErrOwnerNotFound   = httperr.ErrBusiness("owner_not_found")
	ErrEventNotFound   = httperr.ErrBusiness("event_not_found")
	ErrBookingNotFound = httperr.ErrBusiness("booking_not_found")
)
