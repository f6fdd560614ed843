package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaizaiboom/futureu913/internal/adapter/ai/openai"
	"github.com/zaizaiboom/futureu913/internal/config"
	"github.com/zaizaiboom/futureu913/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AIAPIKey:      "test-key",
		AIBaseURL:     baseURL,
		AIModel:       "test-model",
		AICallTimeout: 2 * time.Second,
		AIMaxTokens:   256,
		AITemperature: 0.7,
	}
}

func TestChatJSON_Success(t *testing.T) {
	t.Parallel()
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"ok": true}`}},
			},
		})
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	out, err := c.ChatJSON(context.Background(), "system", "user", 128)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)

	assert.Equal(t, "test-model", gotBody["model"])
	assert.Equal(t, float64(128), gotBody["max_tokens"])
	rf, ok := gotBody["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
	msgs, ok := gotBody["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestChatJSON_RateLimited(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.ChatJSON(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}

func TestChatJSON_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.ChatJSON(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestChatJSON_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.AICallTimeout = 100 * time.Millisecond
	c := openai.New(cfg)
	_, err := c.ChatJSON(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamTimeout))
}

func TestChatJSON_EmptyChoices(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.ChatJSON(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedOutput))
}

func TestChatJSON_MalformedBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	_, err := c.ChatJSON(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedOutput))
}

func TestChatJSON_MissingAPIKey(t *testing.T) {
	t.Parallel()
	cfg := testConfig("http://unused")
	cfg.AIAPIKey = ""
	c := openai.New(cfg)
	_, err := c.ChatJSON(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}
