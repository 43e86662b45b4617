package publisher

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/keystat/keystat/composer"
	"github.com/keystat/keystat/pkg/errlvl"
)

const (
	platformTelegram = "telegram"
	// TelegramMaxLength is the Telegram message limit in characters.
	TelegramMaxLength = 4096
)

// telegramSender is the part of tgbotapi.BotAPI used by TelegramPublisher.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramPublisher mirrors posts to a Telegram channel.
type TelegramPublisher struct {
	ChannelID string // Telegram channel id (e.g. @my_channel)
	BotAPI    telegramSender
}

// NewTelegramPublisher creates a TelegramPublisher, checking the token against the Bot API.
func NewTelegramPublisher(channelID, token string) (*TelegramPublisher, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, newError(platformTelegram, errlvl.ERROR, errRequestFailed, err)
	}
	return &TelegramPublisher{
		ChannelID: channelID,
		BotAPI:    b,
	}, nil
}

// Name returns the platform name.
func (*TelegramPublisher) Name() string {
	return platformTelegram
}

// MaxLength returns the Telegram limit and the way Telegram measures it.
func (*TelegramPublisher) MaxLength() (int, composer.LengthFunc) {
	return TelegramMaxLength, composer.RuneLength
}

// Publish sends text to the channel and returns the message id.
// The Bot API client has no context support, ctx is only checked before sending.
func (t *TelegramPublisher) Publish(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", newError(platformTelegram, errlvl.ERROR, errEmptyText)
	}
	if err := ctx.Err(); err != nil {
		return "", newError(platformTelegram, errlvl.WARN, errRequestFailed, err)
	}

	msg := tgbotapi.NewMessageToChannel(t.ChannelID, text)
	msg.DisableWebPagePreview = true

	s, err := t.BotAPI.Send(msg)
	if err != nil {
		return "", newError(platformTelegram, errlvl.WARN, errRejected).WithResponse(0, err.Error())
	}
	return strconv.Itoa(s.MessageID), nil
}
