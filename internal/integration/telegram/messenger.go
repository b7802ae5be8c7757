// Package telegram delivers report messages through a Telegram bot
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/carelog/daycare-bot/internal/entities"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Sender is the part of *tgbotapi.BotAPI the messenger needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger pushes messages to Telegram chats.
// Cards are sent as their plain-text rendering.
type Messenger struct {
	bot Sender
}

// NewMessenger wraps a bot client
func NewMessenger(bot Sender) *Messenger {
	return &Messenger{bot: bot}
}

// NewBot connects to the Bot API with the given token
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return bot, nil
}

// ParseChatID converts a stored contact id into a Telegram chat id
func ParseChatID(to string) (int64, error) {
	if to == "" {
		return 0, entities.Missing("userId")
	}
	id, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return 0, &entities.ValidationError{Field: "userId", Message: "not a Telegram chat id"}
	}
	return id, nil
}

// Push sends each message in order and stops at the first failure
func (m *Messenger) Push(ctx context.Context, to string, msgs []entities.Message) error {
	chatID, err := ParseChatID(to)
	if err != nil {
		return err
	}

	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := m.bot.Send(chattable(chatID, msg)); err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Int("index", i).Msg("Telegram send failed")
			return sendError(err, i, chatID)
		}
	}
	log.Debug().Int64("chat_id", chatID).Int("count", len(msgs)).Msg("Telegram messages sent")
	return nil
}

type apiErrorBody struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// sendError turns a Bot API rejection into an UpstreamError carrying the
// API's error payload. Transport failures are wrapped as is.
func sendError(err error, index int, chatID int64) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to send message %d to chat %d: %w", index, chatID, err)
	}
	body, _ := json.Marshal(apiErrorBody{ErrorCode: apiErr.Code, Description: apiErr.Message})
	return &entities.UpstreamError{Service: "telegram", StatusCode: apiErr.Code, Body: string(body)}
}

func chattable(chatID int64, msg entities.Message) tgbotapi.Chattable {
	switch msg.Type {
	case entities.MessageImage:
		return tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.ImageURL))
	case entities.MessageCard:
		text := msg.Card.PlainText()
		if text == "" {
			text = msg.AltText
		}
		return tgbotapi.NewMessage(chatID, text)
	default:
		return tgbotapi.NewMessage(chatID, msg.Text)
	}
}
