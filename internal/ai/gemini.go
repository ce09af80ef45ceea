package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured for the gemini provider
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGateway opens coach conversations with Google's Gemini API
type GeminiGateway struct {
	model           string
	maxOutputTokens int32
	systemPrompt    string
	httpClient      *http.Client
	logger          *zap.Logger
}

func NewGeminiGateway(opts Options) *GeminiGateway {
	opts = opts.withDefaults()
	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGateway{
		model:           model,
		maxOutputTokens: int32(opts.MaxOutputTokens),
		systemPrompt:    opts.SystemPrompt,
		httpClient:      opts.HTTPClient,
		logger:          opts.Logger,
	}
}

func (gg *GeminiGateway) InitializeSession(ctx context.Context, credential string) (Session, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, &InitializationError{Err: errors.New("the Gemini API key is empty")}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: gg.httpClient,
	})
	if err != nil {
		return nil, &InitializationError{Err: fmt.Errorf("failed to create Gemini client: %w", err)}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(gg.systemPrompt, genai.RoleUser),
		MaxOutputTokens:   gg.maxOutputTokens,
	}
	chat, err := client.Chats.Create(ctx, gg.model, config, nil)
	if err != nil {
		return nil, &InitializationError{Err: fmt.Errorf("failed to start Gemini chat: %w", err)}
	}

	gg.logger.Debug("gemini chat started", zap.String("model", gg.model))
	return &geminiSession{chat: chat}, nil
}

// chatSender is the part of *genai.Chat used by a session
type chatSender interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// geminiSession relies on the SDK's chat to keep the turn history
type geminiSession struct {
	chat chatSender
}

func (gs *geminiSession) SendTurn(ctx context.Context, text string) (string, error) {
	resp, err := gs.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", &TransportError{Err: err}
	}

	reply := resp.Text()
	if strings.TrimSpace(reply) == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", NewTransportError(fmt.Sprintf("the coach declined to answer (%s)", resp.PromptFeedback.BlockReason))
		}
		return "", NewTransportError("the coach sent an empty reply")
	}
	return reply, nil
}
