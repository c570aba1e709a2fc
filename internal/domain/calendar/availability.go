package calendar

import (
	"sort"
	"time"

	"github.com/BruksfildServices01/club-calendar/internal/models"
)

const clockLayout = "15:04"

type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SlotQuery struct {
	Rules        []models.AvailabilityRule
	Busy         []Interval
	Location     *time.Location
	WindowStart  time.Time
	WindowEnd    time.Time
	SlotDuration time.Duration
}

// ComputeSlots tiles every active rule of the window with fixed-duration
// candidates and drops those overlapping a busy interval. Slots are derived
// on demand and never stored.
func ComputeSlots(q SlotQuery) ([]Slot, error) {
	if !q.WindowEnd.After(q.WindowStart) || q.SlotDuration <= 0 {
		return nil, ErrInvalidWindow
	}

	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	rules := make(map[int]models.AvailabilityRule, len(q.Rules))
	for _, r := range q.Rules {
		rules[r.Weekday] = r
	}

	busy := make([]Interval, len(q.Busy))
	copy(busy, q.Busy)
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	window := Interval{Start: q.WindowStart, End: q.WindowEnd}

	ws := q.WindowStart.In(loc)
	day := time.Date(ws.Year(), ws.Month(), ws.Day(), 0, 0, 0, 0, loc)

	slots := []Slot{}
	for ; day.Before(q.WindowEnd); day = day.AddDate(0, 0, 1) {
		rule, ok := rules[MondayFirst(day.Weekday())]
		if !ok || !rule.Active {
			continue
		}

		open, close, err := RuleBounds(day, rule)
		if err != nil {
			continue
		}

		for cur := open; !cur.Add(q.SlotDuration).After(close); cur = cur.Add(q.SlotDuration) {
			cand := Interval{Start: cur, End: cur.Add(q.SlotDuration)}
			if !window.Contains(cand) || conflicts(cand, busy) {
				continue
			}
			slots = append(slots, Slot{Start: cand.Start, End: cand.End})
		}
	}

	return slots, nil
}

// conflicts expects busy sorted by start.
func conflicts(cand Interval, busy []Interval) bool {
	for _, b := range busy {
		if !b.Start.Before(cand.End) {
			return false
		}
		if cand.Overlaps(b) {
			return true
		}
	}
	return false
}

// RuleBounds resolves the rule's clock times on the given day.
func RuleBounds(day time.Time, rule models.AvailabilityRule) (time.Time, time.Time, error) {
	start, err := time.Parse(clockLayout, rule.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidAvailability
	}
	end, err := time.Parse(clockLayout, rule.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidAvailability
	}

	at := func(t time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
	}
	return at(start), at(end), nil
}

// ===============================
// Weekly template
// ===============================

// DayWindow is one open day of a template save request.
type DayWindow struct {
	Weekday   int
	StartTime string
	EndTime   string
}

// BuildTemplate expands the active subset into the full seven-day template.
// Days not listed are stored inactive.
func BuildTemplate(ownerID uint, open []DayWindow) ([]models.AvailabilityRule, error) {
	rules := make([]models.AvailabilityRule, 7)
	for i := range rules {
		rules[i] = models.AvailabilityRule{OwnerID: ownerID, Weekday: i}
	}

	seen := make(map[int]bool, len(open))
	for _, d := range open {
		if d.Weekday < 0 || d.Weekday > 6 || seen[d.Weekday] {
			return nil, ErrInvalidAvailability
		}
		seen[d.Weekday] = true

		r := models.AvailabilityRule{
			OwnerID:   ownerID,
			Weekday:   d.Weekday,
			Active:    true,
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
		}
		if err := ValidateRule(r); err != nil {
			return nil, err
		}
		rules[d.Weekday] = r
	}

	return rules, nil
}

// ValidateRule requires start < end on active days.
func ValidateRule(r models.AvailabilityRule) error {
	if !r.Active {
		return nil
	}
	start, err := time.Parse(clockLayout, r.StartTime)
	if err != nil {
		return ErrInvalidAvailability
	}
	end, err := time.Parse(clockLayout, r.EndTime)
	if err != nil {
		return ErrInvalidAvailability
	}
	if !start.Before(end) {
		return ErrInvalidAvailability
	}
	return nil
}

// CompleteTemplate returns exactly seven rules ordered by weekday, filling
// days missing from storage as inactive.
func CompleteTemplate(ownerID uint, stored []models.AvailabilityRule) []models.AvailabilityRule {
	out := make([]models.AvailabilityRule, 7)
	for i := range out {
		out[i] = models.AvailabilityRule{OwnerID: ownerID, Weekday: i}
	}
	for _, r := range stored {
		if r.Weekday >= 0 && r.Weekday <= 6 {
			out[r.Weekday] = r
		}
	}
	return out
}
