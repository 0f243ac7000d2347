package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnthropicClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAnthropicClient("test-key", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
}

func writeMessage(w http.ResponseWriter, content []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-test",
		"content":       content,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 120, "output_tokens": 80},
	})
}

func TestAnthropicClient_Generate(t *testing.T) {
	var body map[string]any
	client := newTestAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeMessage(w, []map[string]any{{"type": "text", "text": `{"name":"x"}`}})
	})

	result, err := client.Generate(context.Background(), GenerationRequest{
		SystemInstructions: "system",
		UserPrompt:         "Extract from Google Sheets",
		Model:              "claude-test",
		MaxOutputTokens:    2500,
		Temperature:        0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"x"}`, result.Text)
	assert.Equal(t, int64(120), result.Usage.InputTokens)
	assert.Equal(t, int64(80), result.Usage.OutputTokens)
	assert.Equal(t, int64(200), result.Usage.Total())

	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 2500, body["max_tokens"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	client := newTestAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, []map[string]any{})
	})

	_, err := client.Generate(context.Background(), GenerationRequest{Model: "m", MaxOutputTokens: 10, Temperature: 0})
	require.Error(t, err)

	var emptyErr *EmptyGenerationError
	assert.True(t, errors.As(err, &emptyErr))
	assert.True(t, errors.Is(err, ErrEmptyGeneration))
}

func TestAnthropicClient_ServiceError(t *testing.T) {
	client := newTestAnthropicClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"model not found"}}`))
	})

	_, err := client.Generate(context.Background(), GenerationRequest{Model: "m", MaxOutputTokens: 10, Temperature: 0.5})
	require.Error(t, err)

	var serviceErr *GenerationServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, http.StatusBadRequest, serviceErr.StatusCode)
}

func TestAnthropicClient_RejectsTemperatureOutOfRange(t *testing.T) {
	client := NewAnthropicClient("k")
	_, err := client.Generate(context.Background(), GenerationRequest{Temperature: 1.2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature")

	var serviceErr *GenerationServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Zero(t, serviceErr.StatusCode)
}

func TestCompletion_FirstText(t *testing.T) {
	tests := []struct {
		name    string
		blocks  []completionBlock
		want    string
		wantErr bool
	}{
		{"single text", []completionBlock{{Type: "text", Text: "hello"}}, "hello", false},
		{"skips non text", []completionBlock{{Type: "tool_use"}, {Type: "text", Text: "after"}}, "after", false},
		{"empty text", []completionBlock{{Type: "text", Text: ""}}, "", true},
		{"no blocks", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := completion{Content: tt.blocks}.firstText()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyGeneration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
