package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// CompatGenerator talks to any OpenAI-compatible chat-completions
// endpoint (DeepSeek, local gateways, proxy deployments). Configured
// with an explicit base URL instead of a provider SDK.
type CompatGenerator struct {
	name       string
	apiKey     string
	baseURL    string
	models     []string
	httpClient *http.Client
}

type compatRequest struct {
	Model     string          `json:"model"`
	Messages  []compatMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type compatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewCompatGenerator creates a generator for an OpenAI-compatible API.
func NewCompatGenerator(name, apiKey, baseURL string, models []string) (*CompatGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%s base URL is required", name)
	}
	return &CompatGenerator{
		name:       name,
		apiKey:     apiKey,
		baseURL:    baseURL,
		models:     models,
		httpClient: &http.Client{},
	}, nil
}

func (g *CompatGenerator) Name() string {
	return g.name
}

func (g *CompatGenerator) Models() []string {
	return g.models
}

// Generate posts a chat completion request and returns the response text.
func (g *CompatGenerator) Generate(ctx context.Context, model string, prompt string) (string, error) {
	body, err := json.Marshal(compatRequest{
		Model:     model,
		Messages:  []compatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 4096,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Temporary: true, Err: fmt.Errorf("%s request failed: %w", g.name, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s returned status %d: %s", g.name, resp.StatusCode, string(raw)),
		}
	}

	var parsed compatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse %s response: %w", g.name, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s API error: %s (type: %s)", g.name, parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", g.name)
	}
	return parsed.Choices[0].Message.Content, nil
}
