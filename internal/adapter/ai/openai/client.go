// Package openai implements the LLM port against an OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/merakitalent/fernando-format/internal/config"
	"github.com/merakitalent/fernando-format/internal/domain"
)

// Client is a minimal chat-completions client implementing domain.AIClient.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxElapsed      time.Duration
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// New constructs a Client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.OpenAIBaseURL, "/"),
		apiKey:          cfg.OpenAIAPIKey,
		model:           cfg.ChatModel,
		httpClient:      &http.Client{Timeout: cfg.AITimeout},
		maxElapsed:      cfg.AIBackoffMaxElapsedTime,
		initialInterval: cfg.AIBackoffInitialInterval,
		maxInterval:     cfg.AIBackoffMaxInterval,
		multiplier:      cfg.AIBackoffMultiplier,
	}
}

func (c *Client) newBackoff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	if c.initialInterval > 0 {
		expo.InitialInterval = c.initialInterval
	}
	if c.maxInterval > 0 {
		expo.MaxInterval = c.maxInterval
	}
	if c.multiplier > 0 {
		expo.Multiplier = c.multiplier
	}
	expo.MaxElapsedTime = c.maxElapsed
	return expo
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func readSnippet(r io.Reader, n int) string {
	b, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(b)
}

// Complete performs one chat completion. 5xx and 429 responses and network
// errors are retried with exponential backoff inside the call's deadline;
// other 4xx responses are permanent.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: userPrompt})
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", domain.ErrInternal, err)
	}

	endpoint := c.baseURL + "/chat/completions"
	var out string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Retryable: let backoff handle network failures.
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			snippet := readSnippet(resp.Body, 512)
			slog.Warn("ai provider transient failure",
				slog.String("op", "chat"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.model),
				slog.String("body", snippet))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			snippet := readSnippet(resp.Body, 512)
			slog.Error("ai provider rejected request",
				slog.String("op", "chat"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.model),
				slog.String("body", snippet))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		}
		var decoded chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if len(decoded.Choices) == 0 {
			return backoff.Permanent(errors.New("empty choices"))
		}
		out = strings.TrimSpace(decoded.Choices[0].Message.Content)
		return nil
	}

	bo := backoff.WithContext(c.newBackoff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: chat completion: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return out, nil
}
