package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Button is one inline keyboard button: a visible label and the opaque
// callback token it sends back when pressed.
type Button struct {
	Label string
	Data  string
}

// KeyboardRow is one row of an inline keyboard.
type KeyboardRow []Button

// Gateway is the outbound messaging surface the state machine talks
// to. Tests swap in a fake.
type Gateway interface {
	SendText(chatID int64, text string) (int, error)
	SendKeyboard(chatID int64, text string, rows []KeyboardRow) (int, error)
	SendPhoto(chatID int64, url string) (int, error)
	EditText(chatID int64, messageID int, text string) error
	EditKeyboard(chatID int64, messageID int, text string, rows []KeyboardRow) error
	DeleteMessage(chatID int64, messageID int)
	AnswerCallback(callbackID string)
}

// TelegramGateway implements Gateway over the Telegram bot API.
type TelegramGateway struct {
	api    *tgbotapi.BotAPI
	logger *logrus.Logger
}

// NewTelegramGateway wraps an authenticated API handle.
func NewTelegramGateway(api *tgbotapi.BotAPI, logger *logrus.Logger) *TelegramGateway {
	return &TelegramGateway{api: api, logger: logger}
}

// Updates opens the long-polling update channel.
func (g *TelegramGateway) Updates() tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	return g.api.GetUpdatesChan(cfg)
}

// Stop shuts down the update channel.
func (g *TelegramGateway) Stop() {
	g.api.StopReceivingUpdates()
}

// SendText sends a plain text message and returns its message id.
func (g *TelegramGateway) SendText(chatID int64, text string) (int, error) {
	sent, err := g.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendKeyboard sends a text message with an inline keyboard attached.
func (g *TelegramGateway) SendKeyboard(chatID int64, text string, rows []KeyboardRow) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup(rows)
	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send keyboard: %w", err)
	}
	return sent.MessageID, nil
}

// SendPhoto sends a photo by URL and returns its message id.
func (g *TelegramGateway) SendPhoto(chatID int64, url string) (int, error) {
	sent, err := g.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url)))
	if err != nil {
		return 0, fmt.Errorf("failed to send photo: %w", err)
	}
	return sent.MessageID, nil
}

// EditText replaces the text of an already sent message. Edits that
// would not change anything are not an error.
func (g *TelegramGateway) EditText(chatID int64, messageID int, text string) error {
	_, err := g.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	if err != nil && !strings.Contains(err.Error(), "message is not modified") {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// EditKeyboard replaces both text and keyboard of a sent message.
func (g *TelegramGateway) EditKeyboard(chatID int64, messageID int, text string, rows []KeyboardRow) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup(rows))
	_, err := g.api.Send(edit)
	if err != nil && !strings.Contains(err.Error(), "message is not modified") {
		return fmt.Errorf("failed to edit keyboard: %w", err)
	}
	return nil
}

// DeleteMessage removes a sent message. The message may already be
// gone, so failures are only logged.
func (g *TelegramGateway) DeleteMessage(chatID int64, messageID int) {
	if _, err := g.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		g.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":    chatID,
			"message_id": messageID,
		}).Debug("Failed to delete message")
	}
}

// AnswerCallback acknowledges a keyboard press so the client stops
// showing a spinner. Failures are only logged.
func (g *TelegramGateway) AnswerCallback(callbackID string) {
	if _, err := g.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		g.logger.WithError(err).Debug("Failed to answer callback query")
	}
}

func markup(rows []KeyboardRow) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}
