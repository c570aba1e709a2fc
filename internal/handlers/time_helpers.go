package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type ownerLookup interface {
	GetOwnerByID(ctx context.Context, id uint) (*models.Owner, error)
}

// parseInstant accepts RFC3339 or a bare date, read in loc.
func parseInstant(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err = time.ParseInLocation("2006-01-02", s, loc)
	return t, true, err
}

// parseRange reads ?start&end. A bare end date includes that whole day.
func parseRange(c *gin.Context, loc *time.Location) (time.Time, time.Time, error) {
	rawStart, rawEnd := c.Query("start"), c.Query("end")
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, domain.ErrInvalidWindow
	}

	start, _, err := parseInstant(rawStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidWindow
	}

	end, dateOnly, err := parseInstant(rawEnd, loc)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidWindow
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidWindow
	}
	return start, end, nil
}
