package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/threadscribe/internal/config"
)

type openAIBackend struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
	log         *slog.Logger
}

func newOpenAIBackend(_ context.Context, cfg config.AIConfig, logger *slog.Logger) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openAIBackend{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		log:         logger.With("component", "openai_backend"),
	}, nil
}

func (b *openAIBackend) Name() string { return "openai" }

func (b *openAIBackend) GenerateSummary(ctx context.Context, messages []string, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(messages, "\n")},
		},
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
	}

	b.log.DebugContext(ctx, "Requesting summary", "model", b.model, "message_count", len(messages))

	resp, err := b.createWithRetries(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned empty content, finish reason: %s", resp.Choices[0].FinishReason)
	}

	b.log.DebugContext(ctx, "Summary generated", "prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return text, nil
}

func (b *openAIBackend) createWithRetries(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for i := 0; i <= b.maxRetries; i++ {
		resp, err := b.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retriableOpenAIError(err) || i == b.maxRetries {
			break
		}

		b.log.WarnContext(ctx, "OpenAI call failed, retrying", "attempt", i+1, "max_retries", b.maxRetries, "delay", b.retryDelay, "error", err)
		select {
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		case <-time.After(b.retryDelay):
		}
	}

	b.log.ErrorContext(ctx, "OpenAI call failed", "error", lastErr)
	return openai.ChatCompletionResponse{}, fmt.Errorf("openai API call failed: %w", lastErr)
}

func retriableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return true
		}
	}
	return false
}
