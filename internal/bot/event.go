package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Event is one normalized inbound update. Message texts and callback
// presses are flattened into the same shape so the state machine never
// touches the transport types.
type Event struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string

	// Text message fields. Command and Args are set when the text is
	// a slash command.
	Text    string
	Command string
	Args    string

	// Callback fields, set when a keyboard button was pressed.
	CallbackID   string
	CallbackData string

	// MessageID is the message the event originated from.
	MessageID int
}

// IsCallback reports whether the event came from a keyboard press.
func (e Event) IsCallback() bool {
	return e.CallbackID != ""
}

// EventFromUpdate flattens a raw update into an Event. It reports
// false for update kinds the bot does not handle.
func EventFromUpdate(update tgbotapi.Update) (Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil {
			return Event{}, false
		}
		return Event{
			ChatID:       cb.Message.Chat.ID,
			UserID:       cb.From.ID,
			Username:     cb.From.UserName,
			FirstName:    cb.From.FirstName,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
			MessageID:    cb.Message.MessageID,
		}, true
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return Event{}, false
		}
		ev := Event{
			ChatID:    msg.Chat.ID,
			UserID:    msg.From.ID,
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			Text:      msg.Text,
			MessageID: msg.MessageID,
		}
		if msg.IsCommand() {
			ev.Command = msg.Command()
			ev.Args = msg.CommandArguments()
		}
		return ev, true
	}
	return Event{}, false
}
