package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// messageSender sends a complete message request and returns the complete response
type messageSender interface {
	SendMessage(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropt.RequestOption) (*anthropic.Message, error)
}

// StreamingMessageSender sends messages using the streaming API and accumulates the events into a whole message. The
// API is streamed to keep long generations from hitting request timeouts on the server side; replies are still
// delivered whole
type StreamingMessageSender struct {
	client anthropic.Client
	logger *zap.Logger
}

func NewStreamingMessageSender(client anthropic.Client, logger *zap.Logger) StreamingMessageSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return StreamingMessageSender{
		client: client,
		logger: logger,
	}
}

func (sms StreamingMessageSender) SendMessage(
	ctx context.Context,
	params anthropic.MessageNewParams,
	opts ...anthropt.RequestOption,
) (*anthropic.Message, error) {
	stream := sms.client.Messages.NewStreaming(ctx, params, opts...)
	defer stream.Close()

	response := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		err := response.Accumulate(event)
		if err != nil {
			return nil, fmt.Errorf("failed to accumulate response content stream: %w", err)
		}
	}
	if stream.Err() != nil {
		return nil, fmt.Errorf("failed to stream response: %w", stream.Err())
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			sms.logger.Warn("failed to marshal corrupt message for inspection", zap.Error(err))
		}
		return nil, fmt.Errorf("malformed message: %v", string(b))
	}

	sms.logger.Debug("token usage",
		zap.Int64("input", response.Usage.InputTokens),
		zap.Int64("output", response.Usage.OutputTokens),
		zap.Int64("cache_read", response.Usage.CacheReadInputTokens),
	)

	return &response, nil
}
