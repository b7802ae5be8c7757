package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/carelog/daycare-bot/internal/entities"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent    []tgbotapi.Chattable
	failAt  int
	failErr error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		if f.failErr != nil {
			return tgbotapi.Message{}, f.failErr
		}
		return tgbotapi.Message{}, errors.New("boom")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestPush_ConvertsMessages(t *testing.T) {
	sender := &fakeSender{}
	m := NewMessenger(sender)

	card := &entities.FlexBubble{
		Type: "bubble",
		Body: &entities.FlexComponent{Type: "box", Layout: "vertical", Contents: []entities.FlexComponent{
			{Type: "text", Text: "王奶奶 的健康報告"},
		}},
	}
	err := m.Push(context.Background(), "42", []entities.Message{
		entities.NewTextMessage("hello"),
		entities.NewImageMessage("https://chart.example/c"),
		entities.NewCardMessage("alt", card),
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 3)

	text := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), text.ChatID)
	assert.Equal(t, "hello", text.Text)

	photo := sender.sent[1].(tgbotapi.PhotoConfig)
	assert.Equal(t, tgbotapi.FileURL("https://chart.example/c"), photo.File)

	assert.Equal(t, "王奶奶 的健康報告", sender.sent[2].(tgbotapi.MessageConfig).Text)
}

func TestPush_StopsAtFirstFailure(t *testing.T) {
	sender := &fakeSender{failAt: 2}
	m := NewMessenger(sender)

	err := m.Push(context.Background(), "42", []entities.Message{
		entities.NewTextMessage("a"),
		entities.NewTextMessage("b"),
		entities.NewTextMessage("c"),
	})

	assert.Error(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestPush_APIErrorBecomesUpstreamError(t *testing.T) {
	sender := &fakeSender{failAt: 1, failErr: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}}
	m := NewMessenger(sender)

	err := m.Push(context.Background(), "42", []entities.Message{entities.NewTextMessage("a")})

	var upstream *entities.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "telegram", upstream.Service)
	assert.Equal(t, 403, upstream.StatusCode)
	assert.JSONEq(t, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`, upstream.Body)
}

func TestPush_TransportErrorIsWrapped(t *testing.T) {
	sender := &fakeSender{failAt: 1}
	m := NewMessenger(sender)

	err := m.Push(context.Background(), "42", []entities.Message{entities.NewTextMessage("a")})

	var upstream *entities.UpstreamError
	assert.False(t, errors.As(err, &upstream))
	assert.ErrorContains(t, err, "boom")
}

func TestParseChatID(t *testing.T) {
	id, err := ParseChatID("-100123")
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), id)

	_, err = ParseChatID("Uabcdef")
	assert.ErrorIs(t, err, entities.ErrInvalidRequest)

	_, err = ParseChatID("")
	assert.ErrorIs(t, err, entities.ErrInvalidRequest)
}
