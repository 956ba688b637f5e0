package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/jsonapi"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
	DefaultTimeout   = 60 * time.Second
)

const temperature = 0.3

func New(log *slog.Logger, config ConfigSource) *Relay {
	return &Relay{
		log:       log,
		config:    config,
		OpenAIURL: DefaultOpenAIURL,
		Timeout:   DefaultTimeout,
	}
}

// Relay forwards a conversation to Azure OpenAI or OpenAI and returns the reply.
// Configuration is resolved on every call, so changes apply to the next request.
type Relay struct {
	log    *slog.Logger
	config ConfigSource
	// OpenAIURL is the chat completions endpoint used for OpenAI.
	OpenAIURL string
	// Timeout bounds each provider call. Zero means no timeout.
	Timeout time.Duration
}

// ProviderError is returned when the provider responds with a non-success status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

type completionRequest struct {
	Model       string               `json:"model,omitempty"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
}

type outboundRequest struct {
	url         string
	headerName  string
	headerValue string
	body        completionRequest
}

func newOutboundRequest(cfg ProviderConfig, openAIURL string, messages []models.ChatMessage) (req outboundRequest, err error) {
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	switch cfg := cfg.(type) {
	case Azure:
		req.url, err = azureURL(cfg)
		if err != nil {
			return req, fmt.Errorf("failed to build Azure OpenAI URL: %w", err)
		}
		req.headerName, req.headerValue = "api-key", cfg.APIKey
		req.body = completionRequest{Messages: messages, Temperature: temperature}
	case OpenAI:
		req.url = openAIURL
		req.headerName, req.headerValue = "Authorization", "Bearer "+cfg.APIKey
		req.body = completionRequest{Model: cfg.Model, Messages: messages, Temperature: temperature}
	default:
		return req, fmt.Errorf("unknown provider config %T", cfg)
	}
	return req, nil
}

func azureURL(cfg Azure) (string, error) {
	return jsonapi.URL(strings.TrimRight(cfg.Endpoint, "/")).
		Path("openai", "deployments", cfg.Deployment, "chat", "completions").
		Query(map[string]string{"api-version": cfg.APIVersion}).
		String()
}

// GetChatCompletion sends the messages to the configured provider and returns
// the content of the first choice. A success response without that content
// results in an empty reply rather than an error.
func (r *Relay) GetChatCompletion(ctx context.Context, messages []models.ChatMessage) (reply string, err error) {
	cfg, err := Resolve(r.config)
	if err != nil {
		return "", err
	}
	req, err := newOutboundRequest(cfg, r.OpenAIURL, messages)
	if err != nil {
		return "", err
	}
	buf, err := json.Marshal(req.body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.url, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	r.log.Debug("sending chat completion request", slog.String("provider", cfg.Provider()), slog.String("url", req.url), slog.Int("messages", len(req.body.Messages)))
	start := time.Now()
	res, err := jsonapi.Raw(httpReq,
		jsonapi.WithRequestHeader("Content-Type", "application/json"),
		jsonapi.WithRequestHeader(req.headerName, req.headerValue))
	if err != nil {
		return "", fmt.Errorf("%s: %w", cfg.Provider(), err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response body: %w", cfg.Provider(), err)
	}
	r.log.Info("chat completion response received", slog.String("provider", cfg.Provider()), slog.Int("status", res.StatusCode), slog.Duration("duration", time.Since(start)))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", &ProviderError{
			Provider:   cfg.Provider(),
			StatusCode: res.StatusCode,
			Body:       string(payload),
		}
	}

	// Only choices[].message is read, so unrelated fields can't fail the decode.
	var completion struct {
		Choices []struct {
			Message openai.ChatCompletionMessage `json:"message"`
		} `json:"choices"`
	}
	if err = json.Unmarshal(payload, &completion); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", cfg.Provider(), err)
	}
	if len(completion.Choices) == 0 {
		r.log.Warn("chat completion response has no choices", slog.String("provider", cfg.Provider()))
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
