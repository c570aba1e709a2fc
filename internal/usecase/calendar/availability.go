package calendar

import (
	"context"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type GetAvailability struct {
	repo domain.Repository
}

func NewGetAvailability(repo domain.Repository) *GetAvailability {
	return &GetAvailability{repo: repo}
}

// Execute always returns seven rules, Monday first.
func (uc *GetAvailability) Execute(ctx context.Context, ownerID uint) ([]models.AvailabilityRule, error) {
	stored, err := uc.repo.GetAvailability(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return domain.CompleteTemplate(ownerID, stored), nil
}

type SaveAvailability struct {
	repo  domain.Repository
	audit *audit.Dispatcher
}

func NewSaveAvailability(repo domain.Repository, audit *audit.Dispatcher) *SaveAvailability {
	return &SaveAvailability{repo: repo, audit: audit}
}

// Execute replaces the whole weekly template. Listed days become active,
// every other day inactive.
func (uc *SaveAvailability) Execute(
	ctx context.Context,
	ownerID uint,
	open []domain.DayWindow,
) ([]models.AvailabilityRule, error) {

	rules, err := domain.BuildTemplate(ownerID, open)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.ReplaceAvailability(ctx, ownerID, rules); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  ownerID,
		Action:   "availability_saved",
		Entity:   "availability",
		Metadata: map[string]any{"open_days": len(open)},
	})

	return rules, nil
}
