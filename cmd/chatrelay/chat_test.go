package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/a-h/chatrelay/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
)

func newTestModel(t *testing.T) (model, chan string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	toServer := make(chan string, 1)
	return newModel(ctx, nil, toServer, make(chan []models.ChatMessage), make(chan error)), toServer
}

func TestChatModelEnterSubmits(t *testing.T) {
	m, toServer := newTestModel(t)
	m.textarea.SetValue("  Hello  ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command to send the message")
	}
	cmd()

	select {
	case actual := <-toServer:
		if actual != "Hello" {
			t.Errorf("expected %q, got %q", "Hello", actual)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the message to be sent")
	}
	if v := updated.(model).textarea.Value(); v != "" {
		t.Errorf("expected the input to be cleared, got %q", v)
	}
}

func TestChatModelEnterIgnoresEmptyInput(t *testing.T) {
	m, toServer := newTestModel(t)
	m.textarea.SetValue("   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no command for an empty message")
	}
	if len(toServer) != 0 {
		t.Error("expected nothing to be sent")
	}
}

func TestChatModelScrollsToBottom(t *testing.T) {
	m, _ := newTestModel(t)

	var msgs []models.ChatMessage
	for i := 0; i < 20; i++ {
		msgs = append(msgs, models.ChatMessage{Role: "user", Content: fmt.Sprintf("message %d", i)})
	}
	updated, _ := m.Update(msgs)
	if !updated.(model).viewport.AtBottom() {
		t.Error("expected the transcript to be scrolled to the bottom")
	}
}

func TestChatModelShowsErrors(t *testing.T) {
	m, _ := newTestModel(t)

	updated, _ := m.Update(errors.New("502 Bad Gateway"))
	if !strings.Contains(updated.View(), "Error: 502 Bad Gateway") {
		t.Error("expected the error to be shown")
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      models.ChatMessage
		expected string
	}{
		{
			name:     "user messages have an icon",
			msg:      models.ChatMessage{Role: "user", Content: "Hi"},
			expected: "🥷 Hi",
		},
		{
			name:     "assistant messages have an icon",
			msg:      models.ChatMessage{Role: "assistant", Content: "Hello"},
			expected: "✨ Hello",
		},
		{
			name:     "unknown roles are still rendered",
			msg:      models.ChatMessage{Role: "tool", Content: "42"},
			expected: "🤷 42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := formatMessage(tt.msg)
			if !strings.Contains(actual, tt.expected) {
				t.Errorf("expected %q to contain %q", actual, tt.expected)
			}
		})
	}
}

func TestTakeTurn(t *testing.T) {
	system := models.ChatMessage{Role: "system", Content: "Be brief."}

	t.Run("the user message and reply are added", func(t *testing.T) {
		var sent []models.ChatMessage
		post := func(ctx context.Context, messages []models.ChatMessage) (string, error) {
			sent = messages
			return "Hello", nil
		}
		actual, err := takeTurn(context.Background(), post, []models.ChatMessage{system}, "Hi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expectedSent := []models.ChatMessage{system, {Role: "user", Content: "Hi"}}
		if diff := cmp.Diff(expectedSent, sent); diff != "" {
			t.Error(diff)
		}
		expected := append(expectedSent, models.ChatMessage{Role: "assistant", Content: "Hello"})
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("failed turns leave the conversation unchanged", func(t *testing.T) {
		var sent [][]models.ChatMessage
		fail := true
		post := func(ctx context.Context, messages []models.ChatMessage) (string, error) {
			sent = append(sent, messages)
			if fail {
				return "", errors.New("502 Bad Gateway")
			}
			return "Hello", nil
		}
		conversation, err := takeTurn(context.Background(), post, []models.ChatMessage{system}, "Hi")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if diff := cmp.Diff([]models.ChatMessage{system}, conversation); diff != "" {
			t.Error(diff)
		}

		fail = false
		if _, err = takeTurn(context.Background(), post, conversation, "Hi again"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []models.ChatMessage{system, {Role: "user", Content: "Hi again"}}
		if diff := cmp.Diff(expected, sent[1]); diff != "" {
			t.Error(diff)
		}
	})
}
