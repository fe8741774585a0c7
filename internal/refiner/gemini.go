package refiner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiRefiner uses Google's Gemini API.
type GeminiRefiner struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGeminiRefiner(ctx context.Context, apiKey, model string, maxTokens int, temperature float64, logger *zap.Logger) (*GeminiRefiner, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiRefiner{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}, nil
}

func (r *GeminiRefiner) Refine(ctx context.Context, idea string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(r.temperature)),
		MaxOutputTokens: int32(r.maxTokens),
	}

	result, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(buildPrompt(idea)), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	refined := strings.TrimSpace(result.Text())
	r.logger.Debug("Gemini refinement received", zap.String("model", r.model))
	return refined, nil
}
