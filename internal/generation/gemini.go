package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (QuestionGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.4)

	return &geminiGenerator{client: client, model: model, logger: logger}, nil
}

func (g *geminiGenerator) Provider() string { return ProviderGemini }

func (g *geminiGenerator) Generate(ctx context.Context, req GenerateRequest) ([]DraftQuestion, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}

	raw := sb.String()
	g.logger.Debug("Gemini response", "length", len(raw))
	if raw == "" {
		return nil, ErrNoDraftQuestions
	}

	return ParseDraftQuestions(raw, req.Difficulty)
}

func (g *geminiGenerator) Close() error {
	return g.client.Close()
}
