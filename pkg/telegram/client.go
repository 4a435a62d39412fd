package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers bot notifications to a single chat.
type Notifier interface {
	SendMessage(text string) error
}

type botNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient authorizes the bot with the token and binds it to chatID.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("authorizing telegram bot: %w", err)
	}
	return &botNotifier{bot: bot, chatID: chatID}, nil
}

// SendMessage posts a Markdown message to the bound chat.
func (c *botNotifier) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.bot.Send(msg)
	return err
}
