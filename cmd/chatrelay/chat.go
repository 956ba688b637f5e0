package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/a-h/chatrelay/client"
	"github.com/a-h/chatrelay/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sashabaranov/go-openai"
)

type ChatCommand struct {
	ServerURL        string `help:"The URL of the chat relay server." env:"CHAT_RELAY_URL" default:"http://localhost:9020"`
	ServerAPIKey     string `help:"The API key for the chat relay server." env:"CHAT_RELAY_API_KEY" default:""`
	SystemPromptFile string `help:"A file containing a system prompt to start the conversation with." env:"SYSTEM_PROMPT" default:""`
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	crc := client.New(c.ServerURL, c.ServerAPIKey)

	var conversation []models.ChatMessage
	if c.SystemPromptFile != "" {
		pfBytes, err := os.ReadFile(c.SystemPromptFile)
		if err != nil {
			return fmt.Errorf("failed to read system prompt file: %w", err)
		}
		conversation = append(conversation, models.ChatMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: string(pfBytes),
		})
	}

	initial := slices.Clone(conversation)
	toServer := make(chan string)
	fromServer := make(chan []models.ChatMessage)
	errs := make(chan error)

	send := func(msgs []models.ChatMessage) {
		select {
		case fromServer <- append([]models.ChatMessage(nil), msgs...):
		case <-ctx.Done():
		}
	}

	// The server is stateless, so the whole conversation is sent on every turn.
	go func() {
		for {
			var text string
			select {
			case text = <-toServer:
			case <-ctx.Done():
				return
			}
			pending := append(slices.Clone(conversation), models.ChatMessage{Role: openai.ChatMessageRoleUser, Content: text})
			send(append(pending, models.ChatMessage{Role: openai.ChatMessageRoleAssistant, Content: "..."}))

			var err error
			conversation, err = takeTurn(ctx, crc.ChatPost, conversation, text)
			send(conversation)
			if err != nil {
				select {
				case errs <- err:
				case <-ctx.Done():
				}
			}
		}
	}()

	p := tea.NewProgram(newModel(ctx, initial, toServer, fromServer, errs))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

type chatPoster func(ctx context.Context, messages []models.ChatMessage) (reply string, err error)

// takeTurn adds the user's text and the reply to the conversation. If the
// request fails, the conversation is returned unchanged so that the next
// message doesn't follow an unanswered one.
func takeTurn(ctx context.Context, post chatPoster, conversation []models.ChatMessage, text string) ([]models.ChatMessage, error) {
	next := append(slices.Clone(conversation), models.ChatMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	reply, err := post(ctx, next)
	if err != nil {
		return conversation, err
	}
	return append(next, models.ChatMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	}), nil
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Foreground  = lipgloss.Color("#f8f8f2")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Margin(1).Padding(1)

const header = "chatrelay - Enter to send, Alt+Enter for a new line, Esc to quit."

var errorStyle = lipgloss.NewStyle().Foreground(Red).Bold(true)

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context

	toServer   chan string
	fromServer chan []models.ChatMessage
	errors     chan error
}

func newModel(ctx context.Context, conversation []models.ChatMessage, toServer chan string, fromServer chan []models.ChatMessage, errors chan error) model {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 4000

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	// Enter submits, so new lines need a modifier.
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")

	vp := viewport.New(80, 20)
	vp.SetContent(renderTranscript(conversation))

	return model{
		ctx:        ctx,
		textarea:   ta,
		viewport:   vp,
		fromServer: fromServer,
		toServer:   toServer,
		errors:     errors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToFromServer(),
		m.subscribeToErrors(),
	)
}

func (m model) subscribeToFromServer() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromServer:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

var roleToStyle = map[string]lipgloss.Style{
	openai.ChatMessageRoleSystem:    lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).MaxWidth(90).Background(Background).Foreground(Green),
	openai.ChatMessageRoleUser:      lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
	openai.ChatMessageRoleAssistant: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan),
}

var roleToIcon = map[string]string{
	openai.ChatMessageRoleSystem:    "🤖",
	openai.ChatMessageRoleUser:      "🥷",
	openai.ChatMessageRoleAssistant: "✨",
}

func formatMessage(msg models.ChatMessage) string {
	style, ok := roleToStyle[msg.Role]
	if !ok {
		style = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Foreground)
	}
	icon, ok := roleToIcon[msg.Role]
	if !ok {
		icon = "🤷"
	}
	wrapped := wordwrap.String(strings.TrimSpace(icon+" "+msg.Content), 80)
	return style.Render(wrapped)
}

func renderTranscript(msgs []models.ChatMessage) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")
	for _, cm := range msgs {
		sb.WriteString(formatMessage(cm))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		return m, m.subscribeToErrors()
	case []models.ChatMessage:
		m.viewport.SetContent(renderTranscript(msg))
		m.viewport.GotoBottom()
		return m, m.subscribeToFromServer()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 4
		m.textarea.SetWidth(msg.Width)
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" {
				// Don't send empty messages.
				return m, nil
			}
			m.textarea.Reset()
			m.err = nil
			toServer := m.toServer
			return m, func() tea.Msg {
				select {
				case toServer <- v:
				case <-m.ctx.Done():
				}
				return nil
			}
		default:
			// Send all other keypresses to the textarea.
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m model) View() string {
	status := lipgloss.NewStyle().Foreground(Comment).Render(" ")
	if m.err != nil {
		status = errorStyle.Render("Error: " + m.err.Error())
	}
	return fmt.Sprintf("%s\n%s\n\n%s",
		m.viewport.View(),
		status,
		m.textarea.View(),
	) + "\n\n"
}
