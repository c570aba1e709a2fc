package notification

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
	"github.com/BruksfildServices01/club-calendar/internal/timezone"
)

// Sender is the part of *tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	bot Sender
}

var _ domain.BookingNotifier = (*Telegram)(nil)

func NewTelegram(bot Sender) *Telegram {
	return &Telegram{bot: bot}
}

// NewTelegramFromToken contacts the Bot API to validate the token.
func NewTelegramFromToken(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return NewTelegram(bot), nil
}

// BookingCreated is a no-op for owners without a chat id.
func (t *Telegram) BookingCreated(ctx context.Context, owner *models.Owner, b *models.Booking) error {
	if owner.TelegramChatID == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(*owner.TelegramChatID, bookingText(owner, b))
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func bookingText(owner *models.Owner, b *models.Booking) string {
	loc := timezone.Location(owner.Timezone)
	start := b.SlotStart.In(loc)

	var sb strings.Builder
	fmt.Fprintf(&sb, "New demo booking\n%s %s-%s\n",
		start.Format("Mon 02/01/2006"),
		start.Format("15:04"),
		b.SlotEnd.In(loc).Format("15:04"),
	)
	fmt.Fprintf(&sb, "%s <%s>", b.ProspectName, b.ProspectEmail)
	if b.ProspectCompany != "" {
		fmt.Fprintf(&sb, "\n%s", b.ProspectCompany)
	}
	if b.MeetingLink != nil {
		fmt.Fprintf(&sb, "\nMeet: %s", *b.MeetingLink)
	}
	return sb.String()
}
