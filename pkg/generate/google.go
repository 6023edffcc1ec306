package generate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleGenerator implements Generator for Gemini models.
type GoogleGenerator struct {
	client *genai.Client
}

// NewGoogleGenerator creates a Google Gemini generator.
func NewGoogleGenerator(apiKey string) (*GoogleGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}
	return &GoogleGenerator{client: client}, nil
}

func (g *GoogleGenerator) Name() string {
	return "google"
}

func (g *GoogleGenerator) Models() []string {
	return []string{
		"gemini-2.0-pro",
	}
}

// Generate sends a prompt to Gemini and returns the response text.
func (g *GoogleGenerator) Generate(ctx context.Context, model string, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}
	return content, nil
}
