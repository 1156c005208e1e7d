package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer answers chat completion requests with a fixed content and
// records the last decoded request body
func chatServer(t *testing.T, content string, status int, last *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if last != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(last))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) *pipeline.OpenAIConfig {
	return &pipeline.OpenAIConfig{APIKey: "sk-test", BaseURL: url + "/v1", Model: "gpt-4o-mini"}
}

func TestOpenAIClientComplete(t *testing.T) {
	var body map[string]interface{}
	srv := chatServer(t, "  {\"tags\":[\"salutation\"]}  ", http.StatusOK, &body)

	limiter := ratelimit.NewServiceRateLimiter()
	client := NewOpenAIClient(testConfig(srv.URL), limiter)

	out, err := client.Complete(context.Background(), Request{
		System:    "system prompt",
		User:      "user prompt",
		MaxTokens: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tags":["salutation"]}`, out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 200, body["max_tokens"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])

	stats := limiter.GetStats()[ratelimit.ServiceOpenAI]
	assert.EqualValues(t, 1, stats.RequestCount)
}

func TestOpenAIClientServerError(t *testing.T) {
	srv := chatServer(t, "", http.StatusInternalServerError, nil)
	limiter := ratelimit.NewServiceRateLimiter()
	client := NewOpenAIClient(testConfig(srv.URL), limiter)

	_, err := client.Complete(context.Background(), Request{User: "x"})
	assert.Error(t, err)
	assert.EqualValues(t, 1, limiter.GetStats()[ratelimit.ServiceOpenAI].ErrorCount)
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1} ":            `{"a":1}`,
		"```json {\"a\":1}```":    `{"a":1}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, StripCodeFence(in), in)
	}
}
