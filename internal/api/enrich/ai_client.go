package enrich

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const model = "gemini-2.0-flash"

var _ Generator = (*AIClient)(nil)

// Generator produces a short travel-guide description for an attraction.
type Generator interface {
	GenerateDescription(ctx context.Context, attractionName string) (string, error)
}

// AIClient wraps the Gemini API for description generation.
type AIClient struct {
	client *genai.Client
	model  string
}

func NewAIClient(ctx context.Context) (*AIClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &AIClient{
		client: client,
		model:  model,
	}, nil
}

func (ai *AIClient) GenerateDescription(ctx context.Context, attractionName string) (string, error) {
	prompt := fmt.Sprintf("Describe the tourist attraction %s in 2-3 lines for travelers.", attractionName)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 100,
	}
	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate description: %w", err)
	}
	return result.Text(), nil
}
