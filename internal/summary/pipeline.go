package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/metrics"
	"github.com/edgard/threadscribe/internal/timeframe"
)

// Result is the outcome of a summarization request.
type Result struct {
	Thread *database.Thread
	Window timeframe.Window
	// MessageCount is the number of messages sent to the backend.
	MessageCount int
	// Text is the summary, the "no messages" notice, or the backend error text.
	Text string
	// Failed is true when the backend returned an error; Text then describes it.
	Failed bool
}

// Empty reports whether the window held no messages.
func (r *Result) Empty() bool {
	return r.MessageCount == 0 && !r.Failed
}

// Chunks splits the result for delivery under limit characters per message.
func (r *Result) Chunks(limit int) ([]Chunk, error) {
	if r.Empty() || r.Failed {
		return Split("", r.Text, limit)
	}
	return Split(Header(r.Window.Describe()), r.Text, limit)
}

// Summarizer renders a thread window into a prompt and asks the backend for a summary.
type Summarizer struct {
	store         database.Store
	backend       Backend
	defaultPrompt string
	timeout       time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewSummarizer creates a Summarizer. timeout bounds each backend call; zero disables it.
func NewSummarizer(store database.Store, backend Backend, defaultPrompt string, timeout time.Duration, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Summarizer{
		store:         store,
		backend:       backend,
		defaultPrompt: defaultPrompt,
		timeout:       timeout,
		logger:        logger.With("component", "summarizer"),
		now:           time.Now,
	}
}

// SummarizeNickname looks the thread up by nickname and summarizes it. It
// returns nil, nil when no thread has that nickname.
func (s *Summarizer) SummarizeNickname(ctx context.Context, nickname, token, promptOverride string) (*Result, error) {
	thread, err := s.store.GetThreadByNickname(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to look up thread %q: %w", nickname, err)
	}
	if thread == nil {
		return nil, nil
	}
	return s.Summarize(ctx, thread, token, promptOverride)
}

// Summarize produces a summary of thread's messages inside the window named by
// token. Only store failures are returned as errors; an empty window and a
// backend failure are reported through the Result.
func (s *Summarizer) Summarize(ctx context.Context, thread *database.Thread, token, promptOverride string) (*Result, error) {
	window := timeframe.Resolve(token, s.now().UTC())
	res := &Result{Thread: thread, Window: window}
	log := s.logger.With("thread_id", thread.ThreadID, "nickname", thread.Nickname, "timeframe", window.Token)

	if window.Fallback {
		log.InfoContext(ctx, "Unrecognized timeframe, using default", "requested", window.Requested)
	}

	messages, err := s.store.GetMessages(ctx, thread.ThreadID, &window.Start, &window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for %q: %w", thread.Nickname, err)
	}
	if len(messages) == 0 {
		res.Text = fmt.Sprintf("No messages found for the %s.", window.Describe())
		metrics.RecordSummary(s.backend.Name(), "empty", 0)
		return res, nil
	}

	lines := RenderMessages(messages)
	res.MessageCount = len(lines)
	prompt := BuildPrompt(thread, s.defaultPrompt, promptOverride)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := s.backend.GenerateSummary(callCtx, lines, prompt)
	elapsed := time.Since(started)
	if err != nil {
		log.ErrorContext(ctx, "Summary generation failed", "messages", len(lines), "duration", elapsed, "error", err)
		metrics.RecordSummary(s.backend.Name(), "error", elapsed.Seconds())
		res.Failed = true
		res.Text = "Error generating summary: " + FailureCause(err)
		return res, nil
	}

	log.InfoContext(ctx, "Summary generated", "messages", len(lines), "duration", elapsed, "length", len(text))
	metrics.RecordSummary(s.backend.Name(), "ok", elapsed.Seconds())
	res.Text = text
	return res, nil
}

// RenderMessages formats messages as "[role] author: content" lines, omitting
// the role tag when none was recorded.
func RenderMessages(messages []database.Message) []string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role.Valid && m.Role.String != "" {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.Role.String, m.Author, m.Content))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Author, m.Content))
	}
	return lines
}

// BuildPrompt returns the system prompt for thread: its description, when
// set, followed by the override or the default prompt.
func BuildPrompt(thread *database.Thread, defaultPrompt, override string) string {
	base := defaultPrompt
	if o := strings.TrimSpace(override); o != "" {
		base = o
	}
	if thread != nil && thread.Description.Valid {
		if d := strings.TrimSpace(thread.Description.String); d != "" {
			return "Thread context: " + d + "\n\n" + base
		}
	}
	return base
}

// FailureCause reduces a backend error to a short phrase safe to show users.
// The full error is only logged.
func FailureCause(err error) string {
	var (
		oaAPI *openai.APIError
		oaReq *openai.RequestError
		gmAPI *genai.APIError
	)
	switch {
	case errors.Is(err, ErrBackendUnavailable):
		return ErrBackendUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "the AI provider did not answer in time"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.As(err, &oaAPI) && oaAPI.HTTPStatusCode != 0:
		return fmt.Sprintf("the AI provider returned HTTP %d", oaAPI.HTTPStatusCode)
	case errors.As(err, &oaReq) && oaReq.HTTPStatusCode != 0:
		return fmt.Sprintf("the AI provider returned HTTP %d", oaReq.HTTPStatusCode)
	case errors.As(err, &gmAPI) && gmAPI.Code != 0:
		return fmt.Sprintf("the AI provider returned HTTP %d", gmAPI.Code)
	default:
		return "the AI provider request failed"
	}
}
