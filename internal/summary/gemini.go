package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/threadscribe/internal/config"
)

type geminiBackend struct {
	client        *genai.Client
	model         string
	contentConfig genai.GenerateContentConfig
	maxRetries    int
	retryDelay    time.Duration
	log           *slog.Logger
}

func newGeminiBackend(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	return &geminiBackend{
		client: gi,
		model:  cfg.Model,
		contentConfig: genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: int32(cfg.MaxTokens),
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		log:        logger.With("component", "gemini_backend"),
	}, nil
}

func (b *geminiBackend) Name() string { return "gemini" }

func (b *geminiBackend) GenerateSummary(ctx context.Context, messages []string, prompt string) (string, error) {
	cfg := b.contentConfig
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt}}}
	contents := []*genai.Content{genai.NewContentFromText(strings.Join(messages, "\n"), genai.RoleUser)}

	b.log.DebugContext(ctx, "Requesting summary", "model", b.model, "message_count", len(messages))

	resp, err := b.generateWithRetries(ctx, contents, &cfg)
	if err != nil {
		return "", err
	}
	return b.extractText(ctx, resp)
}

func (b *geminiBackend) generateWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = b.client.Models.GenerateContent(ctx, b.model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		var apiErr *genai.APIError
		if !errors.As(err, &apiErr) || (apiErr.Code != 500 && apiErr.Code != 503) {
			b.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if i == b.maxRetries {
			break
		}

		b.log.WarnContext(ctx, "Gemini API call failed, retrying", "attempt", i+1, "max_retries", b.maxRetries, "code", apiErr.Code, "delay", b.retryDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.retryDelay):
		}
	}

	b.log.ErrorContext(ctx, "Gemini API call failed after max retries", "error", err)
	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", b.maxRetries, err)
}

func (b *geminiBackend) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := string(resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		b.log.ErrorContext(ctx, "Gemini request blocked", "reason", reason)
		return "", fmt.Errorf("summary blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = string(resp.Candidates[0].FinishReason)
		}
		b.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("gemini returned no content, finish reason: %s", finishReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}
