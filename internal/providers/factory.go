package providers

import (
	"context"
	"fmt"
	"log/slog"

	"tiervc/internal/config"
)

// openRouterHeaders identify the application to OpenRouter
var openRouterHeaders = map[string]string{
	"HTTP-Referer": "https://github.com/tiervc/tiervc",
	"X-Title":      config.AppName,
}

// NewCompleter builds the backend client described by cfg
func NewCompleter(ctx context.Context, cfg config.ProviderConfig, keys config.APIKeys, logger *slog.Logger) (Completer, error) {
	key, err := keys.For(cfg.Backend)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendOpenRouter:
		return NewOpenAICompatible(OpenAIConfig{
			Name:    config.BackendOpenRouter,
			APIKey:  key,
			BaseURL: cfg.ResolvedBaseURL(),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Headers: openRouterHeaders,
		}, logger), nil
	case config.BackendOpenAI:
		return NewOpenAICompatible(OpenAIConfig{
			Name:    config.BackendOpenAI,
			APIKey:  key,
			BaseURL: cfg.ResolvedBaseURL(),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	case config.BackendAnthropic:
		return NewAnthropic(AnthropicConfig{
			APIKey:  key,
			BaseURL: cfg.ResolvedBaseURL(),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	case config.BackendGemini:
		return NewGemini(ctx, GeminiConfig{
			APIKey:  key,
			BaseURL: cfg.ResolvedBaseURL(),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider backend %q", cfg.Backend)
	}
}

// NewScoringProviders wires the three analysis roles from configuration
func NewScoringProviders(ctx context.Context, cfg config.ProvidersConfig, logger *slog.Logger) (ScoringProviders, error) {
	market, err := NewCompleter(ctx, cfg.Market, cfg.Keys, logger)
	if err != nil {
		return ScoringProviders{}, fmt.Errorf("market analyst: %w", err)
	}
	team, err := NewCompleter(ctx, cfg.Team, cfg.Keys, logger)
	if err != nil {
		return ScoringProviders{}, fmt.Errorf("team analyst: %w", err)
	}
	judge, err := NewCompleter(ctx, cfg.Judge, cfg.Keys, logger)
	if err != nil {
		return ScoringProviders{}, fmt.Errorf("judge: %w", err)
	}

	return ScoringProviders{
		Market: &LLMMarketAnalyst{Completer: market, Options: optionsFor(cfg.Market)},
		Team:   &LLMTeamAnalyst{Completer: team, Options: optionsFor(cfg.Team)},
		Judge:  &LLMJudge{Completer: judge, Options: optionsFor(cfg.Judge)},
	}, nil
}

func optionsFor(cfg config.ProviderConfig) CompletionOptions {
	return CompletionOptions{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		JSONMode:    cfg.JSONMode,
	}
}

// Unavailable returns roles that fail every call with err. It lets the server
// start and report not-ready when credentials are missing.
func Unavailable(err error) ScoringProviders {
	fail := CompleterFunc(func(context.Context, string, CompletionOptions) (string, error) {
		return "", err
	})
	return ScoringProviders{
		Market: &LLMMarketAnalyst{Completer: fail},
		Team:   &LLMTeamAnalyst{Completer: fail},
		Judge:  &LLMJudge{Completer: fail},
	}
}
