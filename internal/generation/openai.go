package generation

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

type openAIGenerator struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIGenerator talks to any OpenAI-compatible endpoint
func NewOpenAIGenerator(baseURL, apiKey, modelName string, logger *slog.Logger) QuestionGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIGenerator{
		api:    openai.NewClientWithConfig(cfg),
		model:  modelName,
		logger: logger,
	}
}

func (g *openAIGenerator) Provider() string { return ProviderOpenAI }

func (g *openAIGenerator) Generate(ctx context.Context, req GenerateRequest) ([]DraftQuestion, error) {
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoDraftQuestions
	}

	raw := resp.Choices[0].Message.Content
	g.logger.Debug("OpenAI response", "length", len(raw))

	return ParseDraftQuestions(raw, req.Difficulty)
}

func (g *openAIGenerator) Close() error { return nil }
