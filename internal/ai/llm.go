// Package ai produces competitive analyses of stored products through an LLM.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/types"
)

// LLMProvider specifies which LLM backend to use.
type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderOpenAI LLMProvider = "openai"
	ProviderCustom LLMProvider = "custom"
)

// LLMConfig configures the LLM integration.
type LLMConfig struct {
	Provider    LLMProvider
	Endpoint    string // e.g. "http://localhost:11434" for Ollama
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// RateLimitError is returned when a model rejects a call with HTTP 429.
type RateLimitError struct {
	Model string
	Body  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("model %s rate limited: %s", e.Model, e.Body)
}

// LLMClient communicates with an LLM for AI-assisted processing.
type LLMClient struct {
	cfg    LLMConfig
	client *http.Client
	logger *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg LLMConfig, logger *slog.Logger) *LLMClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &LLMClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "llm_client"),
	}
}

// NewLLMClientFromConfig builds a client from the ai config section.
func NewLLMClientFromConfig(cfg *config.AIConfig, logger *slog.Logger) (*LLMClient, error) {
	provider := LLMProvider(cfg.Provider)
	switch provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, &types.ConfigurationError{Key: "ai.api_key", Reason: "is required for openai (set OPENAI_API_KEY)"}
		}
	case ProviderOllama, ProviderCustom:
		if cfg.Endpoint == "" {
			return nil, &types.ConfigurationError{Key: "ai.endpoint", Reason: fmt.Sprintf("is required for %s", provider)}
		}
	default:
		return nil, &types.ConfigurationError{Key: "ai.provider", Reason: fmt.Sprintf("unsupported provider %q", cfg.Provider)}
	}

	return NewLLMClient(LLMConfig{
		Provider:    provider,
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}, logger), nil
}

// Generate sends a prompt to model and returns the response text.
func (c *LLMClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	start := time.Now()
	var (
		out string
		err error
	)
	switch c.cfg.Provider {
	case ProviderOllama:
		out, err = c.generateOllama(ctx, model, prompt)
	case ProviderOpenAI:
		out, err = c.generateOpenAI(ctx, model, prompt)
	case ProviderCustom:
		out, err = c.generateCustom(ctx, model, prompt)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}
	c.logger.Debug("llm call finished", "provider", c.cfg.Provider, "model", model, "duration", time.Since(start), "error", err)
	return out, err
}

func (c *LLMClient) generateOllama(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}

	body, err := c.post(ctx, model, strings.TrimRight(c.cfg.Endpoint, "/")+"/api/generate", payload)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return result.Response, nil
}

func (c *LLMClient) generateOpenAI(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	body, err := c.post(ctx, model, strings.TrimRight(endpoint, "/")+"/chat/completions", payload)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClient) generateCustom(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]any{
		"prompt": prompt,
		"model":  model,
	}
	body, err := c.post(ctx, model, c.cfg.Endpoint, payload)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// post sends payload and returns the body of a 2xx response.
func (c *LLMClient) post(ctx context.Context, model, url string, payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{Model: model, Body: snippet(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet(body))
	}
	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}

// extractJSON tries to find a JSON object in the LLM response.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return "{}"
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return "{}"
}
