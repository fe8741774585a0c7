package refiner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var errNoChoices = errors.New("model returned no choices")

type OpenAIRefiner struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewOpenAIRefinerWithConfig allows pointing the client at a compatible endpoint.
func NewOpenAIRefinerWithConfig(cfg openai.ClientConfig, model string, maxTokens int, temperature float64, logger *zap.Logger) *OpenAIRefiner {
	return &OpenAIRefiner{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (r *OpenAIRefiner) Refine(ctx context.Context, idea string) (string, error) {
	resp, err := r.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: r.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildPrompt(idea),
				},
			},
			MaxTokens:   r.maxTokens,
			Temperature: float32(r.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}

	refined := strings.TrimSpace(resp.Choices[0].Message.Content)
	r.logger.Debug("OpenAI refinement received",
		zap.String("model", r.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return refined, nil
}
