package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"tiervc/internal/infrastructure"
)

// Gemini talks to Google's Gemini models through the genai SDK
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// GeminiConfig configures a Gemini client. An empty BaseURL uses the SDK
// default endpoint.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewGemini creates a Gemini client
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  infrastructure.WithComponent(logger, "providers.gemini"),
	}, nil
}

// Complete implements Completer
func (g *Gemini) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	start := time.Now()

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSONMode {
		genCfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	g.logger.DebugContext(ctx, "completion_received",
		slog.String("model", g.model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_len", len(text)))
	return text, nil
}
