package post

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/chatrelay/relay"
	"github.com/google/go-cmp/cmp"
)

type completerFunc func(ctx context.Context, messages []models.ChatMessage) (string, error)

func (f completerFunc) GetChatCompletion(ctx context.Context, messages []models.ChatMessage) (string, error) {
	return f(ctx, messages)
}

func TestHandler(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tests := []struct {
		name             string
		body             string
		reply            string
		err              error
		expectedStatus   int
		expectedMessages []models.ChatMessage
		expectedReply    string
	}{
		{
			name:           "replies are returned as JSON",
			body:           `[{"role":"system","content":"Be brief."},{"role":"user","content":"Hi"}]`,
			reply:          "Hello!",
			expectedStatus: http.StatusOK,
			expectedMessages: []models.ChatMessage{
				{Role: "system", Content: "Be brief."},
				{Role: "user", Content: "Hi"},
			},
			expectedReply: "Hello!",
		},
		{
			name:           "field names are case insensitive",
			body:           `[{"Role":"user","Content":"Hi"}]`,
			reply:          "Hello!",
			expectedStatus: http.StatusOK,
			expectedMessages: []models.ChatMessage{
				{Role: "user", Content: "Hi"},
			},
			expectedReply: "Hello!",
		},
		{
			name:           "empty replies are returned",
			body:           `[{"role":"user","content":"Hi"}]`,
			expectedStatus: http.StatusOK,
			expectedMessages: []models.ChatMessage{
				{Role: "user", Content: "Hi"},
			},
			expectedReply: "",
		},
		{
			name:           "invalid bodies are rejected",
			body:           `{"role":"user"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing configuration is an internal server error",
			body:           `[]`,
			err:            relay.ErrNotConfigured,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "provider errors are a bad gateway",
			body:           `[]`,
			err:            &relay.ProviderError{Provider: "OpenAI", StatusCode: http.StatusTooManyRequests, Body: `{"error":"rate limited"}`},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "other errors are an internal server error",
			body:           `[]`,
			err:            errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received []models.ChatMessage
			var called bool
			h := New(log, completerFunc(func(ctx context.Context, messages []models.ChatMessage) (string, error) {
				called = true
				received = messages
				return tt.reply, tt.err
			}))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			h.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Header().Get("X-Request-Id") == "" {
				t.Error("expected a request ID header")
			}
			if tt.expectedStatus == http.StatusBadRequest && called {
				t.Error("expected the relay not to be called")
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if diff := cmp.Diff(tt.expectedMessages, received); diff != "" {
				t.Error(diff)
			}
			var resp models.ChatPostResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Reply != tt.expectedReply {
				t.Errorf("expected reply %q, got %q", tt.expectedReply, resp.Reply)
			}
		})
	}
}
