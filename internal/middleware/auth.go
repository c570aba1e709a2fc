package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/club-calendar/internal/httperr"
)

const ContextOwnerID = "ownerID"

type sessionParser interface {
	ParseSession(token string) (uint, error)
}

func AuthMiddleware(tokens sessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httperr.Abort(c, http.StatusUnauthorized, "missing_authorization_header", "Authorization header required.")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httperr.Abort(c, http.StatusUnauthorized, "invalid_authorization_header", "Expected a bearer token.")
			return
		}

		ownerID, err := tokens.ParseSession(strings.TrimSpace(parts[1]))
		if err != nil {
			httperr.Abort(c, http.StatusUnauthorized, "invalid_token", "Session expired or invalid.")
			return
		}

		c.Set(ContextOwnerID, ownerID)
		c.Next()
	}
}

// OwnerID returns the authenticated owner. Only valid behind AuthMiddleware.
func OwnerID(c *gin.Context) uint {
	return c.MustGet(ContextOwnerID).(uint)
}
