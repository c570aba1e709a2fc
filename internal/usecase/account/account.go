package account

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/httperr"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
	"github.com/BruksfildServices01/club-calendar/internal/validators"
)

var (
	ErrInvalidCredentials = httperr.ErrBusiness("invalid_credentials")
	ErrInvalidSlug        = httperr.ErrBusiness("invalid_slug")
	ErrInvalidEmail       = httperr.ErrBusiness("invalid_email")
	ErrInvalidEmailDomain = httperr.ErrBusiness("invalid_email_domain")
	ErrInvalidTimezone    = httperr.ErrBusiness("invalid_timezone")
	ErrWeakPassword       = httperr.ErrBusiness("weak_password")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const minPasswordLen = 6

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Slug     string
	Timezone string
}

// ======================================================
// REGISTER
// ======================================================

type Register struct {
	repo        domain.Repository
	audit       *audit.Dispatcher
	domainValid func(email string) bool
}

func NewRegister(repo domain.Repository, audit *audit.Dispatcher) *Register {
	return &Register{repo: repo, audit: audit}
}

// WithDomainCheck rejects addresses whose domain fails check, usually
// validators.IsEmailDomainValid.
func (uc *Register) WithDomainCheck(check func(email string) bool) *Register {
	uc.domainValid = check
	return uc
}

func (uc *Register) Execute(ctx context.Context, in RegisterInput) (*models.Owner, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validators.IsEmailSyntaxValid(email) {
		return nil, ErrInvalidEmail
	}
	if uc.domainValid != nil && !uc.domainValid(email) {
		return nil, ErrInvalidEmailDomain
	}

	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = timezone.DefaultTimezone
	} else if !timezone.IsValid(tz) {
		return nil, ErrInvalidTimezone
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	owner := &models.Owner{
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		PasswordHash:      string(hashed),
		Slug:              slug,
		Timezone:          tz,
		MinAdvanceMinutes: 120,
		SlotMinutes:       30,
	}

	if err := uc.repo.CreateOwner(ctx, owner); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID:  owner.ID,
		Action:   "owner_registered",
		Entity:   "owner",
		Metadata: map[string]any{"slug": owner.Slug},
	})

	return owner, nil
}

// ======================================================
// LOGIN
// ======================================================

type Login struct {
	repo domain.Repository
}

func NewLogin(repo domain.Repository) *Login {
	return &Login{repo: repo}
}

// Execute does not reveal whether the email exists.
func (uc *Login) Execute(ctx context.Context, email, password string) (*models.Owner, error) {
	owner, err := uc.repo.GetOwnerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrOwnerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return owner, nil
}

// ======================================================
// SETTINGS
// ======================================================

var (
	ErrInvalidMinAdvance  = httperr.ErrBusiness("invalid_min_advance")
	ErrInvalidSlotMinutes = httperr.ErrBusiness("invalid_slot_minutes")
)

// SettingsInput is a partial update; nil fields keep their value.
type SettingsInput struct {
	Name              *string
	Timezone          *string
	MinAdvanceMinutes *int
	SlotMinutes       *int
	TelegramChatID    *int64
}

type UpdateSettings struct {
	repo  domain.Repository
	audit *audit.Dispatcher
}

func NewUpdateSettings(repo domain.Repository, audit *audit.Dispatcher) *UpdateSettings {
	return &UpdateSettings{repo: repo, audit: audit}
}

func (uc *UpdateSettings) Execute(ctx context.Context, ownerID uint, in SettingsInput) (*models.Owner, error) {
	owner, err := uc.repo.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		owner.Name = strings.TrimSpace(*in.Name)
	}
	if in.Timezone != nil {
		if !timezone.IsValid(*in.Timezone) {
			return nil, ErrInvalidTimezone
		}
		owner.Timezone = *in.Timezone
	}
	if in.MinAdvanceMinutes != nil {
		if *in.MinAdvanceMinutes < 0 {
			return nil, ErrInvalidMinAdvance
		}
		owner.MinAdvanceMinutes = *in.MinAdvanceMinutes
	}
	if in.SlotMinutes != nil {
		if *in.SlotMinutes < 5 || *in.SlotMinutes > 480 {
			return nil, ErrInvalidSlotMinutes
		}
		owner.SlotMinutes = *in.SlotMinutes
	}
	if in.TelegramChatID != nil {
		if *in.TelegramChatID == 0 {
			owner.TelegramChatID = nil
		} else {
			owner.TelegramChatID = in.TelegramChatID
		}
	}

	if err := uc.repo.UpdateOwnerSettings(ctx, owner); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		OwnerID: ownerID,
		Action:  "settings_updated",
		Entity:  "owner",
	})

	return uc.repo.GetOwnerByID(ctx, ownerID)
}
