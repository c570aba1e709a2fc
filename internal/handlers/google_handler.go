package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/httpresp"
	"github.com/BruksfildServices01/club-calendar/internal/middleware"
	"github.com/BruksfildServices01/club-calendar/internal/usecase/calsync"
)

type stateTokens interface {
	IssueState(ownerID uint) (string, error)
	ParseState(token string) (uint, error)
}

type GoogleHandler struct {
	status          *calsync.Status
	connect         *calsync.Connect
	completeConnect *calsync.CompleteConnect
	disconnect      *calsync.Disconnect
	reconciler      *calsync.Reconciler

	tokens      stateTokens
	frontendURL string
	log         *slog.Logger
}

func NewGoogleHandler(
	status *calsync.Status,
	connect *calsync.Connect,
	completeConnect *calsync.CompleteConnect,
	disconnect *calsync.Disconnect,
	reconciler *calsync.Reconciler,
	tokens stateTokens,
	frontendURL string,
	log *slog.Logger,
) *GoogleHandler {
	return &GoogleHandler{
		status:          status,
		connect:         connect,
		completeConnect: completeConnect,
		disconnect:      disconnect,
		reconciler:      reconciler,
		tokens:          tokens,
		frontendURL:     strings.TrimRight(frontendURL, "/"),
		log:             log,
	}
}

func (h *GoogleHandler) Status(c *gin.Context) {
	view, err := h.status.Execute(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, view)
}

func (h *GoogleHandler) Connect(c *gin.Context) {
	state, err := h.tokens.IssueState(middleware.OwnerID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	authURL, err := h.connect.Execute(state)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, gin.H{"auth_url": authURL})
}

// Callback is hit by the browser coming back from Google consent. It is not
// behind the session middleware; the signed state identifies the owner.
// The outcome is reported to the frontend as query parameters.
func (h *GoogleHandler) Callback(c *gin.Context) {
	ownerID, err := h.tokens.ParseState(c.Query("state"))
	if err != nil {
		httperr.BadRequest(c, "invalid_state_token", "Authorization state is invalid or expired.")
		return
	}

	if denied := c.Query("error"); denied != "" {
		h.redirect(c, "error", denied)
		return
	}

	if err := h.completeConnect.Execute(c.Request.Context(), ownerID, c.Query("code")); err != nil {
		code := httperr.CodeOf(err)
		if code == "" {
			code = "internal_error"
			h.log.Error("google callback failed",
				slog.Uint64("owner_id", uint64(ownerID)),
				slog.String("error", err.Error()),
			)
		}
		h.redirect(c, "error", code)
		return
	}

	h.redirect(c, "connected", "")
}

func (h *GoogleHandler) redirect(c *gin.Context, outcome, reason string) {
	q := url.Values{}
	q.Set("google", outcome)
	if reason != "" {
		q.Set("reason", reason)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/calendar?"+q.Encode())
}

func (h *GoogleHandler) Sync(c *gin.Context) {
	stats, err := h.reconciler.Reconcile(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		if stats == (domain.SyncStats{}) {
			writeError(c, h.log, err)
			return
		}

		// The pass ran and its summary was recorded.
		status, body := resolveError(c, h.log, err)
		c.JSON(status, gin.H{
			"error_code": body.Code,
			"message":    body.Message,
			"stats":      stats,
		})
		return
	}

	httpresp.OK(c, gin.H{"stats": stats})
}

func (h *GoogleHandler) Disconnect(c *gin.Context) {
	if err := h.disconnect.Execute(c.Request.Context(), middleware.OwnerID(c)); err != nil {
		writeError(c, h.log, err)
		return
	}

	httpresp.OK(c, gin.H{"status": "disconnected"})
}
