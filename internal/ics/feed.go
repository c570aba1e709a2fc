package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/BruksfildServices01/club-calendar/internal/models"
)

const productID = "-//club-calendar//calendar feed//EN"

// Feed renders the owner's events as an iCalendar document. All-day events
// are written as DATE values in loc.
func Feed(owner *models.Owner, events []models.CalendarEvent, loc *time.Location) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(owner.Name)
	cal.SetXWRTimezone(loc.String())

	for _, e := range events {
		ev := cal.AddEvent(e.ID + "@club-calendar")
		ev.SetDtStampTime(e.UpdatedAt.UTC())
		ev.SetCreatedTime(e.CreatedAt.UTC())
		ev.SetModifiedAt(e.UpdatedAt.UTC())
		ev.SetSummary(e.Title)
		ev.SetProperty(ical.ComponentPropertyCategories, e.Type)
		ev.SetProperty(ical.ComponentPropertySequence, strconv.Itoa(e.Revision))

		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.MeetingLink != nil {
			ev.SetURL(*e.MeetingLink)
		}

		if e.AllDay {
			ev.SetAllDayStartAt(e.Start.In(loc))
			ev.SetAllDayEndAt(e.End.In(loc))
		} else {
			ev.SetStartAt(e.Start.UTC())
			ev.SetEndAt(e.End.UTC())
		}
	}

	return cal.Serialize()
}
