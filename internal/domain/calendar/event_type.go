package calendar

import "strings"

type EventType string

const (
	EventAppointment EventType = "appointment"
	EventDemo        EventType = "demo"
	EventMeeting     EventType = "meeting"
	EventPersonal    EventType = "personal"
	EventFollowUp    EventType = "follow-up"
)

var eventTypes = map[EventType]struct{}{
	EventAppointment: {},
	EventDemo:        {},
	EventMeeting:     {},
	EventPersonal:    {},
	EventFollowUp:    {},
}

// ParseEventType accepts only the closed set of event types.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := eventTypes[t]; !ok {
		return "", ErrInvalidEventType
	}
	return t, nil
}
