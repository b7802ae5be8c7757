package entities

import "strings"

// MessageType identifies the kind of outgoing chat message
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageCard  MessageType = "flex"
)

// Message is a channel-neutral outgoing message.
// Transports translate it into their own wire shape.
type Message struct {
	Type     MessageType
	Text     string      // MessageText
	ImageURL string      // MessageImage
	AltText  string      // MessageCard fallback text
	Card     *FlexBubble // MessageCard
}

// NewTextMessage creates a plain text message
func NewTextMessage(text string) Message {
	return Message{Type: MessageText, Text: text}
}

// NewImageMessage creates an image message pointing at url
func NewImageMessage(url string) Message {
	return Message{Type: MessageImage, ImageURL: url}
}

// NewCardMessage creates a structured card message
func NewCardMessage(altText string, card *FlexBubble) Message {
	return Message{Type: MessageCard, AltText: altText, Card: card}
}

// FlexBubble is a single structured card with header, body and footer blocks
type FlexBubble struct {
	Type   string         `json:"type"`
	Size   string         `json:"size,omitempty"`
	Header *FlexComponent `json:"header,omitempty"`
	Body   *FlexComponent `json:"body,omitempty"`
	Footer *FlexComponent `json:"footer,omitempty"`
}

// FlexComponent is a box or text node inside a card
type FlexComponent struct {
	Type            string          `json:"type"`
	Layout          string          `json:"layout,omitempty"`
	Contents        []FlexComponent `json:"contents,omitempty"`
	Text            string          `json:"text,omitempty"`
	Size            string          `json:"size,omitempty"`
	Weight          string          `json:"weight,omitempty"`
	Color           string          `json:"color,omitempty"`
	Align           string          `json:"align,omitempty"`
	Flex            *int            `json:"flex,omitempty"`
	Margin          string          `json:"margin,omitempty"`
	Spacing         string          `json:"spacing,omitempty"`
	Wrap            bool            `json:"wrap,omitempty"`
	BackgroundColor string          `json:"backgroundColor,omitempty"`
	PaddingAll      string          `json:"paddingAll,omitempty"`
}

// PlainText flattens the card into lines, one per horizontal row or text node.
// Channels without card support send this instead.
func (b *FlexBubble) PlainText() string {
	if b == nil {
		return ""
	}
	var lines []string
	for _, block := range []*FlexComponent{b.Header, b.Body, b.Footer} {
		if block != nil {
			lines = append(lines, block.lines()...)
		}
	}
	return strings.Join(lines, "\n")
}

func (c FlexComponent) lines() []string {
	switch {
	case c.Type == "text":
		if c.Text == "" {
			return nil
		}
		return []string{c.Text}
	case c.Type == "box" && c.Layout == "horizontal":
		var parts []string
		for _, child := range c.Contents {
			parts = append(parts, child.lines()...)
		}
		if len(parts) == 0 {
			return nil
		}
		return []string{strings.Join(parts, " ")}
	default:
		var out []string
		for _, child := range c.Contents {
			out = append(out, child.lines()...)
		}
		return out
	}
}
