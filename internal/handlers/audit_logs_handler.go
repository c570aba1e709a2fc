package handlers

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/httpresp"
	"github.com/BruksfildServices01/club-calendar/internal/middleware"
)

type AuditLogsHandler struct {
	reader audit.Reader
	log    *slog.Logger
}

func NewAuditLogsHandler(reader audit.Reader, log *slog.Logger) *AuditLogsHandler {
	return &AuditLogsHandler{reader: reader, log: log}
}

// List filters by ?action&entity&from&to (dates, to inclusive) with
// ?page&limit paging.
func (h *AuditLogsHandler) List(c *gin.Context) {
	q := audit.Query{
		OwnerID: middleware.OwnerID(c),
		Action:  c.Query("action"),
		Entity:  c.Query("entity"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	if s := c.Query("from"); s != "" {
		from, err := time.Parse("2006-01-02", s)
		if err != nil {
			httperr.BadRequest(c, "invalid_date", "Use YYYY-MM-DD.")
			return
		}
		q.From = &from
	}
	if s := c.Query("to"); s != "" {
		to, err := time.Parse("2006-01-02", s)
		if err != nil {
			httperr.BadRequest(c, "invalid_date", "Use YYYY-MM-DD.")
			return
		}
		to = to.AddDate(0, 0, 1)
		q.To = &to
	}

	logs, total, err := h.reader.List(c.Request.Context(), q)
	if err != nil {
		h.log.Error("audit list failed", slog.String("error", err.Error()))
		httperr.Internal(c, "audit_list_failed", "Could not list audit logs.")
		return
	}

	httpresp.OK(c, gin.H{
		"page":  max(q.Page, 1),
		"total": total,
		"logs":  logs,
	})
}
