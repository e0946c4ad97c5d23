// Package anthropic calls the Anthropic Messages API for grading.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takeda-juku/tensaku/internal/common"
	"github.com/takeda-juku/tensaku/internal/grading"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Client implements grading.Caller against the Messages endpoint.
type Client struct {
	cfg        common.GradingConfig
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg common.GradingConfig, log *slog.Logger) *Client {
	return NewClientWithEndpoint(cfg, apiURL, log)
}

// NewClientWithEndpoint points the client at a custom endpoint (for testing).
func NewClientWithEndpoint(cfg common.GradingConfig, endpoint string, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Complete sends the system prompt plus content blocks and returns the
// model's text reply. Blocks marked Cache carry a cache_control marker
// so the shared template material is cached across sheets.
func (c *Client) Complete(ctx context.Context, blocks []grading.ContentBlock) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	content := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		block := map[string]any{
			"type": "text",
			"text": b.Text,
		}
		if b.Cache {
			block["cache_control"] = map[string]any{"type": "ephemeral"}
		}
		content = append(content, block)
	}

	body := map[string]any{
		"model":      c.cfg.Model,
		"max_tokens": c.cfg.MaxTokens,
		"system": []map[string]any{
			{
				"type":          "text",
				"text":          grading.SystemPrompt,
				"cache_control": map[string]any{"type": "ephemeral"},
			},
		},
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}

	c.log.Info("grading.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"blocks", len(blocks),
	)

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("grading.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("%w: %w", common.ErrTransientService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(respBody))
		c.log.Error("grading.api_error",
			"req_id", rid, "status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", common.NewRateLimitError(baseErr, parseRetryAfter(resp.Header.Get("Retry-After")))
		case resp.StatusCode >= 500:
			return "", fmt.Errorf("%w: %w", common.ErrTransientService, baseErr)
		default:
			return "", baseErr
		}
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("%w: empty reply", common.ErrMalformedResponse)
	}
	if parsed.StopReason == "max_tokens" {
		return "", fmt.Errorf("%w: reply truncated at max_tokens", common.ErrMalformedResponse)
	}

	var text strings.Builder
	for _, blk := range parsed.Content {
		if blk.Type == "text" {
			text.WriteString(blk.Text)
		}
	}

	c.log.Info("grading.response",
		"req_id", rid,
		"stop_reason", parsed.StopReason,
		"text_len", text.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text.String(), nil
}

// apiResponse models the Messages API reply.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseRetryAfter(header string) int {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}
