package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/chatrelay/models"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// NewModel adapts the relay to the langchaingo llms.Model interface.
func NewModel(r *Relay) Model {
	return Model{
		relay: r,
	}
}

// Model is a langchaingo model backed by the relay. Call options other than
// the streaming function are ignored, the relay always uses its own settings.
type Model struct {
	relay *Relay
}

var _ llms.Model = Model{}

func (m Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	msgs, err := toChatMessages(messages)
	if err != nil {
		return nil, err
	}
	reply, err := m.relay.GetChatCompletion(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if opts.StreamingFunc != nil {
		if err = opts.StreamingFunc(ctx, []byte(reply)); err != nil {
			return nil, fmt.Errorf("failed to process chunk: %w", err)
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: reply,
			},
		},
	}, nil
}

func (m Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

var roles = map[llms.ChatMessageType]string{
	llms.ChatMessageTypeSystem: openai.ChatMessageRoleSystem,
	llms.ChatMessageTypeHuman:  openai.ChatMessageRoleUser,
	llms.ChatMessageTypeAI:     openai.ChatMessageRoleAssistant,
}

func toChatMessages(messages []llms.MessageContent) ([]models.ChatMessage, error) {
	msgs := make([]models.ChatMessage, len(messages))
	for i, mc := range messages {
		role, ok := roles[mc.Role]
		if !ok {
			role = string(mc.Role)
		}
		var sb strings.Builder
		for _, part := range mc.Parts {
			text, ok := part.(llms.TextContent)
			if !ok {
				return nil, fmt.Errorf("message %d: unsupported content part %T", i, part)
			}
			sb.WriteString(text.Text)
		}
		msgs[i] = models.ChatMessage{
			Role:    role,
			Content: sb.String(),
		}
	}
	return msgs, nil
}
