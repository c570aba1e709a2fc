package calendar

import (
	"strings"
	"time"

	"github.com/BruksfildServices01/club-calendar/internal/models"
)

// ===============================
// Booking State
// ===============================

type State string

const (
	StateConfirmed State = "confirmed"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateNoShow    State = "no_show"
)

// ParseState accepts the four known states only.
func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateConfirmed, StateCompleted, StateCancelled, StateNoShow:
		return st, nil
	}
	return "", ErrInvalidState
}

// InitialState is the state every booking is created in.
func InitialState() State {
	return StateConfirmed
}

func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateNoShow:
		return true
	}
	return false
}

// BlocksSlot reports whether a booking in this state still occupies its interval.
func (s State) BlocksSlot() bool {
	return s != StateCancelled
}

// ===============================
// Validations
// ===============================

// CanTransition allows confirmed -> completed | cancelled | no_show only.
func CanTransition(from, to State) error {
	if !to.IsTerminal() {
		return ErrIllegalTransition
	}
	if from != StateConfirmed {
		return ErrIllegalTransition
	}
	return nil
}

// ===============================
// Domain Actions
// ===============================

func Transition(b *models.Booking, to State, now time.Time) error {
	if err := CanTransition(State(b.State), to); err != nil {
		return err
	}

	b.State = string(to)
	b.ClosedAt = &now
	return nil
}
