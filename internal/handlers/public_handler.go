package handlers

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/dto"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/httpresp"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
	ucCalendar "github.com/BruksfildServices01/club-calendar/internal/usecase/calendar"
)

type slugLookup interface {
	GetOwnerBySlug(ctx context.Context, slug string) (*models.Owner, error)
}

// PublicHandler serves the prospect-facing booking page.
type PublicHandler struct {
	owners        slugLookup
	computeSlots  *ucCalendar.ComputeSlots
	createBooking *ucCalendar.CreateBooking
	log           *slog.Logger
}

func NewPublicHandler(
	owners slugLookup,
	computeSlots *ucCalendar.ComputeSlots,
	createBooking *ucCalendar.CreateBooking,
	log *slog.Logger,
) *PublicHandler {
	return &PublicHandler{
		owners:        owners,
		computeSlots:  computeSlots,
		createBooking: createBooking,
		log:           log,
	}
}

func (h *PublicHandler) Slots(c *gin.Context) {
	slug := c.Param("slug")

	owner, err := h.owners.GetOwnerBySlug(c.Request.Context(), slug)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	start, end, err := parseRange(c, timezone.Location(owner.Timezone))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	slots, err := h.computeSlots.ExecuteBySlug(c.Request.Context(), slug, start, end)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, gin.H{
		"timezone":     owner.Timezone,
		"slot_minutes": owner.SlotMinutes,
		"slots":        slotsOrEmpty(slots),
	})
}

func (h *PublicHandler) CreateBooking(c *gin.Context) {
	var req dto.PublicBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	b, err := h.createBooking.Execute(c.Request.Context(), ucCalendar.CreateBookingInput{
		Slug:            c.Param("slug"),
		Start:           req.Start,
		End:             req.End,
		ProspectName:    req.Name,
		ProspectEmail:   req.Email,
		ProspectCompany: req.Company,
		Notes:           req.Notes,
		WithMeeting:     req.WithMeetingLink,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.Created(c, b)
}

func slotsOrEmpty(s []domain.Slot) []domain.Slot {
	if s == nil {
		return []domain.Slot{}
	}
	return s
}
