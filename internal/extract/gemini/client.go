// Package gemini implements extract.TextExtractor against the
// generativelanguage generateContent endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takeda-juku/tensaku/internal/common"
	"github.com/takeda-juku/tensaku/internal/extract"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta/models"

const (
	maxAttempts = 3
	retryDelay  = 20 * time.Second
)

type Client struct {
	cfg        common.ExtractConfig
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

func NewClient(cfg common.ExtractConfig, log *slog.Logger) *Client {
	return NewClientWithBaseURL(cfg, baseURL, log)
}

// NewClientWithBaseURL points the client at a custom endpoint (for testing).
func NewClientWithBaseURL(cfg common.ExtractConfig, base string, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Extract sends the PDF inline and returns the model's transcript.
// Failed calls are retried before the last error is returned.
func (c *Client) Extract(ctx context.Context, pdf []byte, candidates []string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: google api key is empty", common.ErrInvalidInput)
	}

	rid := uuid.New().String()
	prompt := extract.BuildPrompt(candidates)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.generate(ctx, pdf, prompt, rid)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		c.log.Warn("extract.retry",
			"req_id", rid,
			"attempt", attempt,
			"delay", retryDelay.String(),
			"error", err)
		if serr := c.sleep(ctx, retryDelay); serr != nil {
			return "", serr
		}
	}
	return "", lastErr
}

func (c *Client) generate(ctx context.Context, pdf []byte, prompt, rid string) (string, error) {
	start := time.Now()
	body := map[string]any{
		"contents": []any{
			map[string]any{
				"parts": []any{
					map[string]any{"inline_data": map[string]any{
						"mime_type": "application/pdf",
						"data":      base64.StdEncoding.EncodeToString(pdf),
					}},
					map[string]any{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]any{"temperature": 0},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTransientService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", common.NewRateLimitError(baseErr, 0)
		}
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: %w", common.ErrTransientService, baseErr)
		}
		return "", baseErr
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty reply", common.ErrMalformedResponse)
	}

	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	c.log.Info("extract.response",
		"req_id", rid,
		"text_len", text.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(text.String()), nil
}
