package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/phrazzld/newslens/internal/config"
	"github.com/phrazzld/newslens/internal/redact"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the adapters call.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Client wraps the Gemini API with retry and response validation. It is
// shared by the Analyzer, Translator and Synthesizer and is safe for
// concurrent use.
type Client struct {
	models     contentGenerator
	config     config.LLMConfig
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewClient creates a Client for the Gemini developer API.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %s", ErrInvalidConfig, redact.Error(err))
	}

	return newClient(client.Models, cfg, logger), nil
}

func newClient(models contentGenerator, cfg config.LLMConfig, logger *slog.Logger) *Client {
	c := &Client{
		models:     models,
		config:     cfg,
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		logger:     logger.With("component", "gemini_client"),
	}

	if c.maxRetries < 0 {
		c.logger.Warn("Invalid max retries value, using default", "max_retries", 3)
		c.maxRetries = 3
	}
	if c.baseDelay <= 0 {
		c.logger.Warn("Invalid retry delay value, using default", "base_delay_seconds", 2)
		c.baseDelay = 2 * time.Second
	}
	return c
}

// generate calls the model with exponential backoff retry logic and returns
// the first candidate's content.
//
// Transient errors (rate limits, server errors, network failures) are retried
// up to maxRetries times with jittered backoff. Blocked or malformed responses
// are returned immediately.
func (c *Client) generate(
	ctx context.Context,
	model string,
	prompt string,
	genConfig *genai.GenerateContentConfig,
) (*genai.Content, error) {
	if prompt == "" {
		return nil, ErrEmptyText
	}

	logger := c.logger.With("model", model)
	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		logger.DebugContext(ctx, "Making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", c.maxRetries+1)

		resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), genConfig)
		var content *genai.Content
		if err == nil {
			content, err = candidateContent(resp)
		}
		if err == nil {
			return content, nil
		}

		if !isTransient(err) {
			logger.WarnContext(ctx, "Permanent error occurred, not retrying",
				"attempt", attemptNum,
				"error", err)
			return nil, err
		}

		if attempt >= c.maxRetries {
			logger.WarnContext(ctx, "Maximum retry attempts reached",
				"max_retries", c.maxRetries,
				"error", err)
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %s",
				ErrTransientFailure, c.maxRetries, redact.Error(err))
		}

		delay := c.backoff(attempt)
		logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attemptNum,
			"delay_ms", delay.Milliseconds(),
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrTransientFailure, ctx.Err())
		}
	}
}

// backoff returns baseDelay * 2^attempt * (0.5 + rand(0, 0.5)).
func (c *Client) backoff(attempt int) time.Duration {
	backoff := float64(c.baseDelay) * math.Pow(2, float64(attempt))
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(backoff * jitter)
}

func candidateContent(resp *genai.GenerateContentResponse) (*genai.Content, error) {
	switch {
	case resp == nil:
		return nil, fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "":
		return nil, fmt.Errorf("%w: prompt blocked (%s)", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	case len(resp.Candidates) == 0:
		return nil, fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return nil, fmt.Errorf("%w: content blocked by safety filters", ErrContentBlocked)
	case resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0:
		return nil, fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}
	return resp.Candidates[0].Content, nil
}

// isTransient reports whether a failed call is worth retrying. API errors are
// retried on rate limits and server errors only; anything that is not an API
// error is assumed to be a network failure.
func isTransient(err error) bool {
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrContentBlocked) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableStatus(apiErrPtr.Code)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// textOf concatenates the text parts of content.
func textOf(content *genai.Content) string {
	var text string
	for _, part := range content.Parts {
		if part != nil && !part.Thought {
			text += part.Text
		}
	}
	return text
}
