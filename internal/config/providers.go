package config

import (
	"errors"
	"fmt"
	"time"
)

// ProvidersConfig selects the backend for each analysis role
type ProvidersConfig struct {
	Market ProviderConfig `yaml:"market" envconfig:"MARKET"`
	Team   ProviderConfig `yaml:"team" envconfig:"TEAM"`
	Judge  ProviderConfig `yaml:"judge" envconfig:"JUDGE"`

	// Keys are read from unprefixed environment variables only
	Keys APIKeys `yaml:"-" ignored:"true"`
}

// ProviderConfig configures one analysis role.
// JSONMode asks the backend for a JSON object response where supported.
type ProviderConfig struct {
	Backend     string        `yaml:"backend" envconfig:"BACKEND" validate:"oneof=openrouter openai anthropic gemini"`
	Model       string        `yaml:"model" envconfig:"MODEL" validate:"required"`
	Temperature float64       `yaml:"temperature" envconfig:"TEMPERATURE" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" envconfig:"MAX_TOKENS" validate:"gt=0"`
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	JSONMode    bool          `yaml:"json_mode" envconfig:"JSON_MODE"`
}

// ErrMissingAPIKey is returned by APIKeys.For when a backend has no credential
var ErrMissingAPIKey = errors.New("missing API key")

// APIKeys holds provider credentials
type APIKeys struct {
	OpenRouter string `envconfig:"OPENROUTER_API_KEY"`
	Anthropic  string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAI     string `envconfig:"OPENAI_API_KEY"`
	Gemini     string `envconfig:"GEMINI_API_KEY"`
}

// For returns the credential for backend
func (k APIKeys) For(backend string) (string, error) {
	var key, name string
	switch backend {
	case BackendOpenRouter:
		key, name = k.OpenRouter, "OPENROUTER_API_KEY"
	case BackendAnthropic:
		key, name = k.Anthropic, "ANTHROPIC_API_KEY"
	case BackendOpenAI:
		key, name = k.OpenAI, "OPENAI_API_KEY"
	case BackendGemini:
		key, name = k.Gemini, "GEMINI_API_KEY"
	default:
		return "", fmt.Errorf("unknown provider backend %q", backend)
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, name)
	}
	return key, nil
}

// ResolvedBaseURL returns BaseURL or the backend's public endpoint
func (p ProviderConfig) ResolvedBaseURL() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	switch p.Backend {
	case BackendOpenRouter:
		return OpenRouterBaseURL
	case BackendOpenAI:
		return OpenAIBaseURL
	case BackendAnthropic:
		return AnthropicBaseURL
	}
	return ""
}

// DefaultProviders mirrors the stock deployment: a Nemotron market analyst via
// OpenRouter, a Claude team analyst and a GPT-4o-mini judge.
func DefaultProviders() ProvidersConfig {
	return ProvidersConfig{
		Market: ProviderConfig{
			Backend:     BackendOpenRouter,
			Model:       DefaultMarketModel,
			Temperature: 0.7,
			MaxTokens:   DefaultProviderMaxTokens,
			Timeout:     DefaultProviderTimeout,
			JSONMode:    true,
		},
		Team: ProviderConfig{
			Backend:     BackendAnthropic,
			Model:       DefaultTeamModel,
			Temperature: 0.7,
			MaxTokens:   DefaultProviderMaxTokens,
			Timeout:     DefaultProviderTimeout,
		},
		Judge: ProviderConfig{
			Backend:     BackendOpenAI,
			Model:       DefaultJudgeModel,
			Temperature: 0.5,
			MaxTokens:   DefaultProviderMaxTokens,
			Timeout:     DefaultProviderTimeout,
			JSONMode:    true,
		},
	}
}
