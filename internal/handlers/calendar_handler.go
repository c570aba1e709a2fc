package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/dto"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/httpresp"
	"github.com/BruksfildServices01/club-calendar/internal/ics"
	"github.com/BruksfildServices01/club-calendar/internal/middleware"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
	ucCalendar "github.com/BruksfildServices01/club-calendar/internal/usecase/calendar"
)

// ======================================================
// HANDLER
// ======================================================

type CalendarHandler struct {
	owners ownerLookup

	createEvent *ucCalendar.CreateEvent
	updateEvent *ucCalendar.UpdateEvent
	deleteEvent *ucCalendar.DeleteEvent
	listEvents  *ucCalendar.ListEvents

	getAvailability  *ucCalendar.GetAvailability
	saveAvailability *ucCalendar.SaveAvailability

	listBookings      *ucCalendar.ListBookings
	transitionBooking *ucCalendar.TransitionBooking

	log *slog.Logger
}

func NewCalendarHandler(
	owners ownerLookup,
	createEvent *ucCalendar.CreateEvent,
	updateEvent *ucCalendar.UpdateEvent,
	deleteEvent *ucCalendar.DeleteEvent,
	listEvents *ucCalendar.ListEvents,
	getAvailability *ucCalendar.GetAvailability,
	saveAvailability *ucCalendar.SaveAvailability,
	listBookings *ucCalendar.ListBookings,
	transitionBooking *ucCalendar.TransitionBooking,
	log *slog.Logger,
) *CalendarHandler {
	return &CalendarHandler{
		owners:            owners,
		createEvent:       createEvent,
		updateEvent:       updateEvent,
		deleteEvent:       deleteEvent,
		listEvents:        listEvents,
		getAvailability:   getAvailability,
		saveAvailability:  saveAvailability,
		listBookings:      listBookings,
		transitionBooking: transitionBooking,
		log:               log,
	}
}

// ======================================================
// EVENTS
// ======================================================

func (h *CalendarHandler) ListEvents(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	owner, err := h.owners.GetOwnerByID(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	start, end, err := parseRange(c, timezone.Location(owner.Timezone))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	events, err := h.listEvents.Execute(c.Request.Context(), ownerID, start, end)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.List(c, events)
}

// Feed serves the same range as an iCalendar document.
func (h *CalendarHandler) Feed(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	owner, err := h.owners.GetOwnerByID(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	loc := timezone.Location(owner.Timezone)
	start, end, err := parseRange(c, loc)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	events, err := h.listEvents.Execute(c.Request.Context(), ownerID, start, end)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+owner.Slug+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics.Feed(owner, events, loc)))
}

func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	ev, err := h.createEvent.Execute(c.Request.Context(), middleware.OwnerID(c), eventInput(req))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.Created(c, ev)
}

func (h *CalendarHandler) UpdateEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	ev, err := h.updateEvent.Execute(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), eventInput(req))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, ev)
}

func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	if err := h.deleteEvent.Execute(c.Request.Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func eventInput(req dto.EventRequest) ucCalendar.EventInput {
	return ucCalendar.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Color:       req.Color,
		Start:       req.Start,
		End:         req.End,
		AllDay:      req.AllDay,
		LeadRef:     req.LeadRef,
		ClubRef:     req.ClubRef,
		MeetingLink: req.MeetingLink,
	}
}

// ======================================================
// AVAILABILITY
// ======================================================

func (h *CalendarHandler) GetAvailability(c *gin.Context) {
	rules, err := h.getAvailability.Execute(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, rules)
}

// SaveAvailability replaces the weekly template. Listed weekdays become
// active, the rest inactive.
func (h *CalendarHandler) SaveAvailability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	open := make([]domain.DayWindow, 0, len(req.Slots))
	for _, s := range req.Slots {
		if s.Weekday == nil {
			writeError(c, h.log, domain.ErrInvalidAvailability)
			return
		}
		open = append(open, domain.DayWindow{
			Weekday:   *s.Weekday,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}

	rules, err := h.saveAvailability.Execute(c.Request.Context(), middleware.OwnerID(c), open)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, rules)
}

// ======================================================
// BOOKINGS
// ======================================================

func (h *CalendarHandler) ListBookings(c *gin.Context) {
	bookings, err := h.listBookings.Execute(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.List(c, bookings)
}

func (h *CalendarHandler) TransitionBooking(c *gin.Context) {
	var req dto.BookingStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	b, err := h.transitionBooking.Execute(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), req.Stato)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, b)
}
