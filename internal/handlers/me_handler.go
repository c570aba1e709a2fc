package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/httpresp"
	"github.com/BruksfildServices01/club-calendar/internal/middleware"
	"github.com/BruksfildServices01/club-calendar/internal/usecase/account"
)

type MeHandler struct {
	owners   ownerLookup
	settings *account.UpdateSettings
	log      *slog.Logger
}

func NewMeHandler(owners ownerLookup, settings *account.UpdateSettings, log *slog.Logger) *MeHandler {
	return &MeHandler{owners: owners, settings: settings, log: log}
}

type UpdateSettingsRequest struct {
	Name              *string `json:"name"`
	Timezone          *string `json:"timezone"`
	MinAdvanceMinutes *int    `json:"min_advance_minutes"`
	SlotMinutes       *int    `json:"slot_minutes"`
	TelegramChatID    *int64  `json:"telegram_chat_id"`
}

func (h *MeHandler) GetMe(c *gin.Context) {
	owner, err := h.owners.GetOwnerByID(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, owner)
}

func (h *MeHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	owner, err := h.settings.Execute(c.Request.Context(), middleware.OwnerID(c), account.SettingsInput{
		Name:              req.Name,
		Timezone:          req.Timezone,
		MinAdvanceMinutes: req.MinAdvanceMinutes,
		SlotMinutes:       req.SlotMinutes,
		TelegramChatID:    req.TelegramChatID,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, owner)
}
