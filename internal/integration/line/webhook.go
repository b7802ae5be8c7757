package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the webhook body signature
const SignatureHeader = "X-Line-Signature"

// Event types handled by the webhook
const (
	EventTypeFollow  = "follow"
	EventTypeMessage = "message"
)

// Event is a single webhook delivery item
type Event struct {
	Type       string        `json:"type"`
	ReplyToken string        `json:"replyToken,omitempty"`
	Timestamp  int64         `json:"timestamp,omitempty"`
	Source     Source        `json:"source"`
	Message    *EventMessage `json:"message,omitempty"`
}

// Source identifies who triggered the event
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// EventMessage is the message payload of a message event
type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// IsText reports whether the event is an incoming text message
func (e Event) IsText() bool {
	return e.Type == EventTypeMessage && e.Message != nil && e.Message.Type == "text"
}

// VerifySignature checks the base64 HMAC-SHA256 of body against signature.
// An empty secret disables verification.
func VerifySignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" {
		return true
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

// Sign computes the signature LINE would send for body
func Sign(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
