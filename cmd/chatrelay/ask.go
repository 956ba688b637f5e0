package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/a-h/chatrelay/relay"
	"github.com/tmc/langchaingo/llms"
)

type AskCommand struct {
	Prompt          string        `arg:"" help:"The prompt to send."`
	System          string        `help:"An optional system prompt." default:""`
	AzureEndpoint   string        `help:"The Azure OpenAI endpoint, e.g. https://<resource>.openai.azure.com." env:"AZURE_OPENAI_ENDPOINT"`
	AzureAPIKey     string        `help:"The Azure OpenAI API key." env:"AZURE_OPENAI_API_KEY"`
	AzureDeployment string        `help:"The Azure OpenAI deployment name." env:"AZURE_OPENAI_DEPLOYMENT"`
	AzureAPIVersion string        `help:"The Azure OpenAI API version." env:"AZURE_OPENAI_API_VERSION" default:"2024-08-01-preview"`
	OpenAIAPIKey    string        `help:"The OpenAI API key, used when Azure OpenAI isn't configured." env:"OPENAI_API_KEY"`
	OpenAIModel     string        `help:"The OpenAI model." env:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Timeout         time.Duration `help:"The maximum time to wait for the provider." env:"REQUEST_TIMEOUT" default:"60s"`
	LogLevel        string        `help:"The log level to use." env:"LOG_LEVEL" default:"warn"`
}

func (c AskCommand) config() relay.ConfigSource {
	return relay.Static(map[string]string{
		relay.EnvAzureEndpoint:   c.AzureEndpoint,
		relay.EnvAzureAPIKey:     c.AzureAPIKey,
		relay.EnvAzureDeployment: c.AzureDeployment,
		relay.EnvAzureAPIVersion: c.AzureAPIVersion,
		relay.EnvOpenAIAPIKey:    c.OpenAIAPIKey,
		relay.EnvOpenAIModel:     c.OpenAIModel,
	})
}

func (c AskCommand) messages() (msgs []llms.MessageContent) {
	if c.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, c.System))
	}
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, c.Prompt))
}

func (c AskCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	r := relay.New(log, c.config())
	r.Timeout = c.Timeout

	f := func(ctx context.Context, chunk []byte) error {
		_, err := os.Stdout.Write(chunk)
		return err
	}
	if _, err = relay.NewModel(r).GenerateContent(ctx, c.messages(), llms.WithStreamingFunc(f)); err != nil {
		return fmt.Errorf("failed to get chat completion: %w", err)
	}
	fmt.Println()
	return nil
}
