package line

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path   string
	auth   string
	body   map[string]any
	called int
}

func newServer(t *testing.T, status int, c *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called++
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)
		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"message":"The request body has 1 error(s)"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPush_BodyShape(t *testing.T) {
	var c captured
	srv := newServer(t, http.StatusOK, &c)
	client := NewClient(srv.URL, "secret-token")

	card := &entities.FlexBubble{Type: "bubble"}
	err := client.Push(context.Background(), "U123", []entities.Message{
		entities.NewTextMessage("hello"),
		entities.NewImageMessage("https://chart.example/c.png"),
		entities.NewCardMessage("alt", card),
	})
	require.NoError(t, err)

	assert.Equal(t, pushPath, c.path)
	assert.Equal(t, "Bearer secret-token", c.auth)
	assert.Equal(t, "U123", c.body["to"])

	msgs := c.body["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, map[string]any{"type": "text", "text": "hello"}, msgs[0])

	img := msgs[1].(map[string]any)
	assert.Equal(t, "image", img["type"])
	assert.Equal(t, "https://chart.example/c.png", img["originalContentUrl"])
	assert.Equal(t, "https://chart.example/c.png", img["previewImageUrl"])

	flex := msgs[2].(map[string]any)
	assert.Equal(t, "flex", flex["type"])
	assert.Equal(t, "alt", flex["altText"])
	assert.Equal(t, "bubble", flex["contents"].(map[string]any)["type"])
}

func TestPush_TruncatesToFive(t *testing.T) {
	var c captured
	srv := newServer(t, http.StatusOK, &c)
	client := NewClient(srv.URL, "token")

	var msgs []entities.Message
	for i := 0; i < 7; i++ {
		msgs = append(msgs, entities.NewTextMessage("m"))
	}
	require.NoError(t, client.Push(context.Background(), "U1", msgs))

	assert.Len(t, c.body["messages"].([]any), MaxMessages)
}

func TestPush_UpstreamErrorIsNotRetried(t *testing.T) {
	var c captured
	srv := newServer(t, http.StatusBadRequest, &c)
	client := NewClient(srv.URL, "token")

	err := client.Push(context.Background(), "U1", []entities.Message{entities.NewTextMessage("x")})

	var upstream *entities.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "1 error(s)")
	assert.Equal(t, 1, c.called)
}

func TestPush_MissingTarget(t *testing.T) {
	var c captured
	srv := newServer(t, http.StatusOK, &c)
	client := NewClient(srv.URL, "token")

	err := client.Push(context.Background(), "", []entities.Message{entities.NewTextMessage("x")})

	assert.ErrorIs(t, err, entities.ErrInvalidRequest)
	assert.Equal(t, 0, c.called)
}

func TestReply(t *testing.T) {
	var c captured
	srv := newServer(t, http.StatusOK, &c)
	client := NewClient(srv.URL, "token")

	require.NoError(t, client.Reply(context.Background(), "rt-1", []entities.Message{entities.NewTextMessage("hi")}))

	assert.Equal(t, replyPath, c.path)
	assert.Equal(t, "rt-1", c.body["replyToken"])
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := Sign("channel-secret", body)

	assert.True(t, VerifySignature("channel-secret", body, sig))
	assert.False(t, VerifySignature("other-secret", body, sig))
	assert.False(t, VerifySignature("channel-secret", []byte(`{"events":[{}]}`), sig))
	assert.False(t, VerifySignature("channel-secret", body, "not base64!"))
	assert.True(t, VerifySignature("", body, ""))
}

func TestEvent_IsText(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "message",
		"replyToken": "rt",
		"source": {"type": "user", "userId": "U9"},
		"message": {"id": "1", "type": "text", "text": "王奶奶"}
	}`), &ev))

	assert.True(t, ev.IsText())
	assert.Equal(t, "U9", ev.Source.UserID)
	assert.False(t, Event{Type: EventTypeFollow}.IsText())
	assert.False(t, Event{Type: EventTypeMessage, Message: &EventMessage{Type: "sticker"}}.IsText())
	assert.False(t, Event{Type: EventTypeMessage}.IsText())
}
