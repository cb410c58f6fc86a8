package handlers

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier is the service.Notifier implementation over the bot API.
// Every method makes a single attempt; retrying is the caller's policy, and
// the core's policy is not to.
type TelegramNotifier struct {
	api     API
	channel string
}

func NewTelegramNotifier(api API, channel string) *TelegramNotifier {
	return &TelegramNotifier{api: api, channel: channel}
}

func (n *TelegramNotifier) Send(userID, text string) (int, error) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad user id %q: %w", userID, err)
	}
	sent, err := n.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (n *TelegramNotifier) Prompt(userID, text, approveAction, rejectAction string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad user id %q: %w", userID, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", approveAction),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", rejectAction),
		),
	)
	_, err = n.api.Send(msg)
	return err
}

func (n *TelegramNotifier) Publish(text string) error {
	_, err := n.api.Send(tgbotapi.NewMessageToChannel(n.channel, text))
	return err
}
