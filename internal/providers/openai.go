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

// OpenAICompatible talks to any chat completions API shaped like OpenAI's,
// which covers both OpenAI and OpenRouter.
type OpenAICompatible struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	headers    map[string]string
	httpClient *http.Client
	logger     *slog.Logger
}

// OpenAIConfig configures an OpenAICompatible client
type OpenAIConfig struct {
	// Name labels the backend in errors and logs
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Headers are added to every request, e.g. OpenRouter attribution
	Headers map[string]string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAICompatible creates a chat completions client
func NewOpenAICompatible(cfg OpenAIConfig, logger *slog.Logger) *OpenAICompatible {
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &OpenAICompatible{
		name:       name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		headers:    cfg.Headers,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     infrastructure.WithComponent(logger, "providers."+name),
	}
}

// Complete implements Completer
func (c *OpenAICompatible) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	start := time.Now()

	reqBody := openAIRequest{
		Model:       c.model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	for k, v := range c.headers {
		headers[k] = v
	}

	var resp openAIResponse
	if err := postJSON(ctx, c.httpClient, c.name, c.baseURL+"/chat/completions", headers, reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.name, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no completion returned: %w", c.name, ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.DebugContext(ctx, "completion_received",
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("response_len", len(text)))
	return text, nil
}
