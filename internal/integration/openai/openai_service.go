// Package openai interprets free-text family questions with a chat model
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// Commands the agent may return
const (
	CommandHealthReport = "GetHealthReport"
	CommandGeneralQuery = "GeneralQuery"
)

// AgentResponse is the structured output of the query agent
type AgentResponse struct {
	CommandName string `json:"command_name" jsonschema:"enum=GetHealthReport,enum=GeneralQuery" jsonschema_description:"GetHealthReport when the user asks about one elder's health, GeneralQuery otherwise"`
	ElderName   string `json:"elder_name" jsonschema_description:"The elder's name exactly as written in the known list, or empty"`
	UserMessage string `json:"user_message" jsonschema_description:"A short reply to show the user, in Traditional Chinese"`
}

// QueryAgent turns a family member's message into a command
type QueryAgent interface {
	InterpretUserQuery(ctx context.Context, userMessage string, elderNames []string) (*AgentResponse, error)
}

type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// NewOpenAIService creates the agent. Extra options are passed to the client.
func NewOpenAIService(apiKey string, opts ...option.RequestOption) (QueryAgent, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &openAIServiceImpl{
		client: client,
		schema: GenerateSchema[AgentResponse](),
	}, nil
}

func systemPrompt(elderNames []string) string {
	return fmt.Sprintf(`You are the assistant of an elder day-care center. Family members write to you on LINE or Telegram, usually in Traditional Chinese.

Known elders: %s

Rules:
1. If the user asks about the health, blood pressure, temperature or recent condition of one known elder:
   - command_name = "GetHealthReport"
   - elder_name = that elder's name copied exactly from the list. Match nicknames such as "奶奶" or "阿公" only when exactly one elder fits; otherwise leave it empty.
   - user_message = a one-line polite confirmation.
2. Anything else (greetings, thanks, questions about opening hours or activities):
   - command_name = "GeneralQuery"
   - elder_name = ""
   - user_message = a short, warm reply. Never give medical advice; suggest contacting the center's nurse.

Always reply in Traditional Chinese. Output strictly JSON.`, strings.Join(elderNames, "、"))
}

// InterpretUserQuery sends a message to the agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserQuery(ctx context.Context, userMessage string, elderNames []string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Command, elder name and reply message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(elderNames)),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Model: openai.ChatModelGPT4o,
	})
	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &agentResp); err != nil {
		log.Error().Err(err).Str("raw", chat.Choices[0].Message.Content).Msg("Failed to unmarshal OpenAI response")
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}

	log.Debug().
		Str("command", agentResp.CommandName).
		Str("elder", agentResp.ElderName).
		Msg("Agent interpreted query")
	return &agentResp, nil
}
