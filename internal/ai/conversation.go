package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// DefaultAnthropicModel is used when no model is configured for the anthropic provider
const DefaultAnthropicModel = anthropic.ModelClaudeSonnet4_0

// AnthropicGateway opens coach conversations with Anthropic's Messages API
type AnthropicGateway struct {
	model           anthropic.Model
	maxOutputTokens int64
	systemPrompt    string
	httpClient      *http.Client
	logger          *zap.Logger
}

func NewAnthropicGateway(opts Options) *AnthropicGateway {
	opts = opts.withDefaults()
	model := anthropic.Model(opts.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicGateway{
		model:           model,
		maxOutputTokens: opts.MaxOutputTokens,
		systemPrompt:    opts.SystemPrompt,
		httpClient:      opts.HTTPClient,
		logger:          opts.Logger,
	}
}

func (ag *AnthropicGateway) InitializeSession(_ context.Context, credential string) (Session, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, &InitializationError{Err: errors.New("the Anthropic API key is empty")}
	}
	client := anthropic.NewClient(
		option.WithHTTPClient(ag.httpClient),
		option.WithAPIKey(credential),
		// Failed turns are surfaced to the user to resubmit, never retried
		option.WithMaxRetries(0),
	)
	sender := NewStreamingMessageSender(client, ag.logger)
	return NewConversation(sender, ag.model, ag.maxOutputTokens, ag.systemPrompt), nil
}

// Conversation is a coach session backed by the Anthropic Messages API. The API is stateless, so the conversation
// resends its full history with every turn
type Conversation struct {
	sender messageSender

	model        anthropic.Model
	systemPrompt string
	Turns        []ConversationTurn

	maxOutputTokens int64 // Maximum number of output tokens per response
}

// ConversationTurn is a completed exchange: a user message and the assistant's response
type ConversationTurn struct {
	UserMessage anthropic.MessageParam
	Response    *anthropic.Message
}

func NewConversation(
	sender messageSender,
	model anthropic.Model,
	maxOutputTokens int64,
	systemPrompt string,
) *Conversation {
	return &Conversation{
		sender: sender,

		model:        model,
		systemPrompt: systemPrompt,

		maxOutputTokens: maxOutputTokens,
	}
}

// SendTurn sends the user's text along with the conversation history and returns the text of the reply. A failed
// turn is not recorded in the history
func (cc *Conversation) SendTurn(ctx context.Context, text string) (string, error) {
	userMessage := anthropic.NewUserMessage(anthropic.NewTextBlock(text))

	messageParams := []anthropic.MessageParam{}
	for _, turn := range cc.Turns {
		messageParams = append(messageParams, turn.UserMessage, turn.Response.ToParam())
	}
	messageParams = append(messageParams, userMessage)

	params := anthropic.MessageNewParams{
		Model:     cc.model,
		MaxTokens: cc.maxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: cc.systemPrompt},
		},
		Messages: messageParams,
	}

	response, err := cc.sender.SendMessage(ctx, params)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	reply := responseText(response)
	if strings.TrimSpace(reply) == "" {
		return "", NewTransportError("the coach sent an empty reply")
	}

	cc.Turns = append(cc.Turns, ConversationTurn{
		UserMessage: userMessage,
		Response:    response,
	})

	return reply, nil
}

// responseText joins the text blocks of a response
func responseText(response *anthropic.Message) string {
	var parts []string
	for _, block := range response.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
