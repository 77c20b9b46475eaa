package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSSE = "event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"model\":\"m\",\"usage\":{\"input_tokens\":0,\"output_tokens\":0}}}\n\nevent: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"

func captureServer(t *testing.T, captured *[]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured, _ = io.ReadAll(r.Body)

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(minimalSSE))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := captureServer(t, &captured)

	temp := 0.7
	client := anthropic.New("test-api-key", anthropic.WithBaseURL(srv.URL))
	s, err := client.Stream(context.Background(), drip.Request{
		Model:        "claude-opus-4-20250514",
		SystemPrompt: "You are helpful.",
		Conversation: &drip.Conversation{Messages: []drip.Message{
			{Prompt: "Hello", Response: "Hi"},
			{Prompt: "Aborted", Response: ""},
		}},
		Prompt:      "Thanks",
		MaxTokens:   1024,
		Temperature: &temp,
	})
	require.NoError(t, err)
	defer s.Close()

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))

	assert.Equal(t, "claude-opus-4-20250514", body["model"])
	assert.InDelta(t, 1024, body["max_tokens"], 0)
	assert.Equal(t, true, body["stream"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "You are helpful.", system[0].(map[string]any)["text"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	var roles, texts []string
	for _, m := range msgs {
		msg := m.(map[string]any)
		roles = append(roles, msg["role"].(string))
		texts = append(texts, msg["content"].([]any)[0].(map[string]any)["text"].(string))
	}
	assert.Equal(t, []string{"user", "assistant", "user"}, roles)
	assert.Equal(t, []string{"Hello", "Hi", "Thanks"}, texts)
}

func TestClient_DefaultModelAndMaxTokens(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := captureServer(t, &captured)

	client := anthropic.New("test-api-key", anthropic.WithBaseURL(srv.URL))
	s, err := client.Stream(context.Background(), drip.Request{Prompt: "Hi"})
	require.NoError(t, err)
	defer s.Close()

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
	assert.InDelta(t, 8192, body["max_tokens"], 0)
	assert.NotContains(t, body, "system")
	assert.NotContains(t, body, "temperature")
}

func TestClient_InvalidRequest(t *testing.T) {
	t.Parallel()
	client := anthropic.New("k", anthropic.WithBaseURL("http://127.0.0.1:0"))
	_, err := client.Stream(context.Background(), drip.Request{})
	assert.ErrorIs(t, err, drip.ErrValidation)
}

func TestClient_HTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{
			name:    "rate limit",
			status:  http.StatusTooManyRequests,
			body:    `{"type":"error","error":{"type":"rate_limit_error","message":"Slow down"}}`,
			code:    "rate_limit_error",
			message: "Slow down",
		},
		{
			name:    "billing",
			status:  http.StatusBadRequest,
			body:    `{"type":"error","error":{"type":"billing_error","message":"Your credit balance is too low"}}`,
			code:    "billing_error",
			message: "Your credit balance is too low",
		},
		{
			name:    "non-JSON body",
			status:  http.StatusBadGateway,
			body:    "bad gateway",
			message: "HTTP 502: bad gateway",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := anthropic.New("k", anthropic.WithBaseURL(srv.URL))
			_, err := client.Stream(context.Background(), drip.Request{Prompt: "Hi"})
			require.Error(t, err)
			assert.Equal(t, drip.ErrorDetails{Code: tt.code, Message: tt.message}, drip.DetailsOf(err))
		})
	}
}
