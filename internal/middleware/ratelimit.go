package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/ratelimit"
)

// RateLimit keys the limiter by route and client IP. Limiter errors let
// the request through.
func RateLimit(l ratelimit.Limiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.FullPath() + "|" + c.ClientIP()

		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limiter unavailable", slog.String("error", err.Error()))
			c.Next()
			return
		}
		if !ok {
			httperr.Abort(c, http.StatusTooManyRequests, "rate_limited", "Too many requests, retry later.")
			return
		}

		c.Next()
	}
}
