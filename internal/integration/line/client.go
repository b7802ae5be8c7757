// Package line talks to the LINE Messaging API
package line

import (
	"context"
	"fmt"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultAPIBaseURL is the production Messaging API host
const DefaultAPIBaseURL = "https://api.line.me"

// MaxMessages is the number of messages LINE accepts in one push or reply
const MaxMessages = 5

const (
	pushPath  = "/v2/bot/message/push"
	replyPath = "/v2/bot/message/reply"
)

// Client pushes and replies with messages on behalf of the channel
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a LINE client. Pushes are never retried.
func NewClient(baseURL, channelAccessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(0).
		SetAuthToken(channelAccessToken).
		SetHeader("Content-Type", "application/json")

	return &Client{httpClient: client}
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []wireMessage `json:"messages"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []wireMessage `json:"messages"`
}

// wireMessage is the Messaging API message object
type wireMessage struct {
	Type               string               `json:"type"`
	Text               string               `json:"text,omitempty"`
	OriginalContentURL string               `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string               `json:"previewImageUrl,omitempty"`
	AltText            string               `json:"altText,omitempty"`
	Contents           *entities.FlexBubble `json:"contents,omitempty"`
}

func toWire(msgs []entities.Message) []wireMessage {
	if len(msgs) > MaxMessages {
		log.Warn().Int("count", len(msgs)).Msg("Dropping messages beyond the LINE limit")
		msgs = msgs[:MaxMessages]
	}
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Type {
		case entities.MessageImage:
			out = append(out, wireMessage{
				Type:               "image",
				OriginalContentURL: m.ImageURL,
				PreviewImageURL:    m.ImageURL,
			})
		case entities.MessageCard:
			out = append(out, wireMessage{
				Type:     "flex",
				AltText:  m.AltText,
				Contents: m.Card,
			})
		default:
			out = append(out, wireMessage{Type: "text", Text: m.Text})
		}
	}
	return out
}

// Push sends messages to a user, group or room id
func (c *Client) Push(ctx context.Context, to string, msgs []entities.Message) error {
	if to == "" {
		return entities.Missing("userId")
	}
	return c.post(ctx, pushPath, pushRequest{To: to, Messages: toWire(msgs)})
}

// Reply answers a webhook event using its reply token
func (c *Client) Reply(ctx context.Context, replyToken string, msgs []entities.Message) error {
	if replyToken == "" {
		return entities.Missing("replyToken")
	}
	return c.post(ctx, replyPath, replyRequest{ReplyToken: replyToken, Messages: toWire(msgs)})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("LINE API call failed")
		return fmt.Errorf("failed to call LINE API: %w", err)
	}

	if resp.IsError() {
		log.Error().
			Int("status_code", resp.StatusCode()).
			Str("path", path).
			Str("body", resp.String()).
			Msg("LINE API returned error")
		return &entities.UpstreamError{Service: "line", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	log.Debug().Str("path", path).Msg("LINE API call succeeded")
	return nil
}
