package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takeda-juku/tensaku/internal/common"
	"github.com/takeda-juku/tensaku/internal/grading"
	"github.com/takeda-juku/tensaku/internal/grading/anthropic"
)

func testConfig() common.GradingConfig {
	return common.GradingConfig{
		APIKey:    "test-api-key",
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 4000,
		Timeout:   5 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompleteSendsMessagesRequest(t *testing.T) {
	var reqBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"ok\":true}"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client := anthropic.NewClientWithEndpoint(testConfig(), server.URL, discardLogger())
	got, err := client.Complete(context.Background(), []grading.ContentBlock{
		{Text: "【共通採点基準】...", Cache: true},
		{Text: "【生徒の解答】..."},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)

	assert.Equal(t, "claude-sonnet-4-5-20250929", reqBody["model"])
	assert.Equal(t, float64(4000), reqBody["max_tokens"])

	system := reqBody["system"].([]interface{})
	require.Len(t, system, 1)
	sysBlock := system[0].(map[string]interface{})
	assert.Contains(t, sysBlock["text"], "JSONのみを出力")
	assert.Equal(t, map[string]interface{}{"type": "ephemeral"}, sysBlock["cache_control"])

	messages := reqBody["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)

	cached := content[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "ephemeral"}, cached["cache_control"])
	plain := content[1].(map[string]interface{})
	_, hasCache := plain["cache_control"]
	assert.False(t, hasCache)
}

func TestCompleteRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	client := anthropic.NewClientWithEndpoint(testConfig(), server.URL, discardLogger())
	_, err := client.Complete(context.Background(), []grading.ContentBlock{{Text: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateLimited)

	var rl *common.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 42*time.Second, rl.RetryAfter)
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := anthropic.NewClientWithEndpoint(testConfig(), server.URL, discardLogger())
	_, err := client.Complete(context.Background(), []grading.ContentBlock{{Text: "x"}})
	assert.ErrorIs(t, err, common.ErrTransientService)
}

func TestCompleteTruncatedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{"}],"stop_reason":"max_tokens"}`))
	}))
	defer server.Close()

	client := anthropic.NewClientWithEndpoint(testConfig(), server.URL, discardLogger())
	_, err := client.Complete(context.Background(), []grading.ContentBlock{{Text: "x"}})
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}
