package notifier

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/qr-checkin/internal/config"
	"github.com/gdg-garage/qr-checkin/internal/models"
)

type Notifier interface {
	NotifyRegistration(reg models.Registration) error
	NotifyCheckIn(reg models.Registration, station string) error
}

// Nop is used when no Discord bot is configured.
type Nop struct{}

func (Nop) NotifyRegistration(models.Registration) error     { return nil }
func (Nop) NotifyCheckIn(models.Registration, string) error { return nil }

// messageSender is the part of *discordgo.Session the notifier uses.
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   messageSender
	channelID string
}

// NewDiscordNotifier returns Nop when the bot token or channel is missing.
func NewDiscordNotifier(cfg *config.Config) (Notifier, error) {
	if cfg.DiscordBotToken == "" || cfg.DiscordNotificationsChannelID == "" {
		return Nop{}, nil
	}

	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return Nop{}, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: cfg.DiscordNotificationsChannelID}, nil
}

func (n *DiscordNotifier) NotifyRegistration(reg models.Registration) error {
	message := fmt.Sprintf("📝 **New Registration**\n**Name:** %s\n**Email:** %s\n**Phone:** %s",
		reg.DisplayName(),
		reg.Email,
		reg.Phone,
	)
	return n.send(message)
}

func (n *DiscordNotifier) NotifyCheckIn(reg models.Registration, station string) error {
	when := ""
	if reg.LastCheckIn != nil {
		when = fmt.Sprintf("\n**At:** %s %s", reg.LastCheckIn.Date, reg.LastCheckIn.Time)
	}

	message := fmt.Sprintf("✅ **Check-in**\n**Name:** %s\n**Station:** %s\n**Total check-ins:** %d%s",
		reg.DisplayName(),
		station,
		reg.TotalCheckIns,
		when,
	)
	return n.send(message)
}

func (n *DiscordNotifier) send(message string) error {
	if _, err := n.session.ChannelMessageSend(n.channelID, message); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}
