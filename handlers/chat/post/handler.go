package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/chatrelay/auth"
	"github.com/a-h/chatrelay/models"
	"github.com/a-h/chatrelay/relay"
	"github.com/a-h/respond"
	"github.com/google/uuid"
)

type Completer interface {
	GetChatCompletion(ctx context.Context, messages []models.ChatMessage) (string, error)
}

func New(log *slog.Logger, completer Completer) Handler {
	return Handler{
		log:       log,
		completer: completer,
	}
}

type Handler struct {
	log       *slog.Logger
	completer Completer
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	log := h.log.With(slog.String("requestID", requestID))
	if user, ok := auth.GetUser(r); ok {
		log = log.With(slog.String("user", user))
	}

	var req models.ChatPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}

	log.Info("getting chat completion", slog.Int("messages", len(req)))
	reply, err := h.completer.GetChatCompletion(r.Context(), req)
	if err != nil {
		log.Error("failed to get chat completion", slog.Any("error", err))
		var pe *relay.ProviderError
		switch {
		case errors.Is(err, relay.ErrNotConfigured):
			respond.WithError(w, "chat provider not configured", http.StatusInternalServerError)
		case errors.As(err, &pe):
			respond.WithError(w, fmt.Sprintf("%s returned status %d", pe.Provider, pe.StatusCode), http.StatusBadGateway)
		default:
			respond.WithError(w, "failed to get chat completion", http.StatusInternalServerError)
		}
		return
	}

	respond.WithJSON(w, models.ChatPostResponse{Reply: reply}, http.StatusOK)
}
