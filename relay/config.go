package relay

import (
	"errors"
	"os"
	"strings"
)

// Names of the configuration values read on every call.
const (
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureAPIKey     = "AZURE_OPENAI_API_KEY"
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvOpenAIModel     = "OPENAI_MODEL"
)

const (
	DefaultAzureAPIVersion = "2024-08-01-preview"
	DefaultOpenAIModel     = "gpt-4o-mini"
)

// ErrNotConfigured is returned when neither Azure OpenAI nor OpenAI is configured.
var ErrNotConfigured = errors.New("relay: no chat provider configured: set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT, or OPENAI_API_KEY")

// ConfigSource returns the value of a configuration key, or an empty string if
// it isn't set.
type ConfigSource func(key string) string

// Environment reads configuration from the process environment.
var Environment ConfigSource = os.Getenv

// Static returns a ConfigSource backed by a fixed set of values.
func Static(values map[string]string) ConfigSource {
	return func(key string) string {
		return values[key]
	}
}

// ProviderConfig is either Azure or OpenAI.
type ProviderConfig interface {
	Provider() string
}

type Azure struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

func (Azure) Provider() string { return "Azure OpenAI" }

type OpenAI struct {
	APIKey string
	Model  string
}

func (OpenAI) Provider() string { return "OpenAI" }

// Resolve picks the provider. Azure wins when its endpoint, key and deployment
// are all set, otherwise an OpenAI key is required.
func Resolve(config ConfigSource) (ProviderConfig, error) {
	get := func(key string) string {
		return strings.TrimSpace(config(key))
	}
	azure := Azure{
		Endpoint:   get(EnvAzureEndpoint),
		APIKey:     get(EnvAzureAPIKey),
		Deployment: get(EnvAzureDeployment),
		APIVersion: valueOrDefault(get(EnvAzureAPIVersion), DefaultAzureAPIVersion),
	}
	if azure.Endpoint != "" && azure.APIKey != "" && azure.Deployment != "" {
		return azure, nil
	}
	openAI := OpenAI{
		APIKey: get(EnvOpenAIAPIKey),
		Model:  valueOrDefault(get(EnvOpenAIModel), DefaultOpenAIModel),
	}
	if openAI.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return openAI, nil
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
