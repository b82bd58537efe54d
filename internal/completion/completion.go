// Package completion sends text to the AI service and parses its
// key-value replies.
package completion

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/resilience"
	"github.com/sells-group/contact-enricher/pkg/anthropic"
)

// Completer produces a completion for input under instruction. A timeout is
// not an error: it yields an empty completion.
type Completer interface {
	Complete(ctx context.Context, input, instruction string) (string, error)
}

// Config tunes an AnthropicCompleter.
type Config struct {
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	// MaxInputRunes truncates long page text before sending. Zero keeps all.
	MaxInputRunes int
	Retry         resilience.RetryPolicy
}

// AnthropicCompleter is a Completer backed by the Anthropic messages API.
// Calls pass through the shared rate limiter.
type AnthropicCompleter struct {
	client  anthropic.Client
	limiter *resilience.Limiter
	cfg     Config

	calls        atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// NewAnthropicCompleter creates a completer. limiter may be nil.
func NewAnthropicCompleter(client anthropic.Client, limiter *resilience.Limiter, cfg Config) *AnthropicCompleter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.Label == "" {
		cfg.Retry = resilience.DefaultRetryPolicy("anthropic")
	}
	return &AnthropicCompleter{client: client, limiter: limiter, cfg: cfg}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, input, instruction string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "completion: wait for rate limit")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      instruction,
		Messages:    []anthropic.Message{{Role: "user", Content: truncate(input, c.cfg.MaxInputRunes)}},
		Temperature: &temp,
	}

	resp, err := resilience.RetryVal(callCtx, c.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := c.client.CreateMessage(ctx, req)
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientStatus(apiErr.StatusCode) {
			return nil, resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return resp, err
	})
	if err != nil {
		if ctx.Err() == nil && callCtx.Err() != nil {
			zap.L().Warn("completion timed out", zap.Duration("timeout", c.cfg.Timeout))
			return "", nil
		}
		return "", eris.Wrap(err, "completion: complete")
	}

	c.calls.Add(1)
	c.inputTokens.Add(resp.Usage.InputTokens)
	c.outputTokens.Add(resp.Usage.OutputTokens)
	resp.Usage.LogCost(c.cfg.Model, "completion")

	return resp.Text(), nil
}

// Usage returns the number of successful calls and the tokens they used.
func (c *AnthropicCompleter) Usage() (calls int64, usage anthropic.TokenUsage) {
	return c.calls.Load(), anthropic.TokenUsage{
		InputTokens:  c.inputTokens.Load(),
		OutputTokens: c.outputTokens.Load(),
	}
}

// Model returns the configured model name.
func (c *AnthropicCompleter) Model() string { return c.cfg.Model }

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
