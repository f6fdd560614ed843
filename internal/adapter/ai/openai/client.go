// Package openai implements the AI client against an OpenAI-compatible
// chat-completions endpoint (SiliconFlow, OpenRouter, OpenAI itself).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zaizaiboom/futureu913/internal/adapter/observability"
	"github.com/zaizaiboom/futureu913/internal/config"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

// Client implements domain.AIClient with exactly one HTTP request per call.
// There is no retry at this layer; a failed invocation surfaces as a single
// error and the caller decides whether to substitute a fallback.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a chat client with the configured per-call timeout and an
// otel-instrumented transport.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.AICallTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// ChatJSON posts one chat-completions request and returns the assistant
// message content verbatim.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.AIAPIKey == "" {
		return "", fmt.Errorf("%w: AI_API_KEY missing", domain.ErrInvalidArgument)
	}
	if maxTokens <= 0 {
		maxTokens = c.cfg.AIMaxTokens
	}

	reqBody := chatRequest{
		Model:       c.cfg.AIModel,
		Temperature: c.cfg.AITemperature,
		MaxTokens:   maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("op=ai.chat marshal: %w", err)
	}

	start := time.Now()
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AIBaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("op=ai.chat request: %w", err)
	}
	r.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveAICall("chat", "transport_error", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			slog.Warn("ai call timed out",
				slog.String("model", c.cfg.AIModel),
				slog.Duration("elapsed", time.Since(start)))
			return "", fmt.Errorf("%w: op=ai.chat: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=ai.chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveAICall("chat", "read_error", time.Since(start))
		return "", fmt.Errorf("op=ai.chat read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		observability.ObserveAICall("chat", "rate_limited", time.Since(start))
		slog.Warn("ai provider rate limited",
			slog.Int("status", resp.StatusCode),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
		return "", fmt.Errorf("%w: op=ai.chat status 429", domain.ErrRateLimited)
	case resp.StatusCode >= 400:
		observability.ObserveAICall("chat", "http_error", time.Since(start))
		snippet := string(bodyBytes)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		slog.Warn("ai provider error",
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.cfg.AIModel),
			slog.String("body", snippet))
		return "", fmt.Errorf("op=ai.chat status %d: %s", resp.StatusCode, snippet)
	}

	var out chatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		observability.ObserveAICall("chat", "decode_error", time.Since(start))
		return "", fmt.Errorf("%w: op=ai.chat decode: %v", domain.ErrMalformedOutput, err)
	}
	if out.Error != nil {
		observability.ObserveAICall("chat", "provider_error", time.Since(start))
		return "", fmt.Errorf("op=ai.chat provider error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		observability.ObserveAICall("chat", "empty", time.Since(start))
		return "", fmt.Errorf("%w: op=ai.chat empty choices", domain.ErrMalformedOutput)
	}

	observability.ObserveAICall("chat", "ok", time.Since(start))
	slog.Debug("ai call completed",
		slog.String("model", c.cfg.AIModel),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("content_len", len(out.Choices[0].Message.Content)))
	return out.Choices[0].Message.Content, nil
}

func isClientTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
