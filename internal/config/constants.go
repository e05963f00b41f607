package config

import "time"

// Application constants
const (
	AppName = "TierVC"

	// EnvPrefix namespaces every environment variable read by Load
	EnvPrefix = "TIERVC"

	// ConfigFileEnv overrides the YAML config file location
	ConfigFileEnv = "TIERVC_CONFIG_FILE"
)

// Server defaults
const (
	DefaultPort            = 8000
	DefaultReadTimeout     = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultMaxUploadBytes  = 10 << 20
)

// Evaluation defaults
const (
	DefaultMaxRecords        = 10
	DefaultMaxBatches        = 20
	DefaultStreamIdleTimeout = 60 * time.Second
)

// Rate limiting defaults
const (
	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 50
)

// Provider backends
const (
	BackendOpenRouter = "openrouter"
	BackendOpenAI     = "openai"
	BackendAnthropic  = "anthropic"
	BackendGemini     = "gemini"
)

// Provider defaults
const (
	DefaultProviderTimeout   = 60 * time.Second
	DefaultProviderMaxTokens = 400

	DefaultMarketModel = "nvidia/llama-3.1-nemotron-70b-instruct"
	DefaultTeamModel   = "claude-3-5-haiku-20241022"
	DefaultJudgeModel  = "gpt-4o-mini"

	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"
	AnthropicBaseURL  = "https://api.anthropic.com/v1"
)
