package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tiervc/internal/infrastructure"
)

const anthropicVersion = "2023-06-01"

// Anthropic talks to the Anthropic messages API
type Anthropic struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// AnthropicConfig configures an Anthropic client
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type anthropicRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropic creates a messages API client
func NewAnthropic(cfg AnthropicConfig, logger *slog.Logger) *Anthropic {
	return &Anthropic{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     infrastructure.WithComponent(logger, "providers.anthropic"),
	}
}

// Complete implements Completer. The messages API has no JSON mode, so
// JSONMode is ignored and the prompt alone asks for JSON.
func (c *Anthropic) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	start := time.Now()

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}
	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, c.httpClient, "anthropic", c.baseURL+"/messages", headers, reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s", resp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	c.logger.DebugContext(ctx, "completion_received",
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_len", len(text)))
	return text, nil
}
