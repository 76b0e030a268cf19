package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiModel = "gemini-1.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

var ErrNoDraftQuestions = errors.New("provider returned no questions")

// QuestionGenerator produces draft multiple-choice questions from a topic or a document
type QuestionGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]DraftQuestion, error)
	Provider() string
	Close() error
}

type GenerateRequest struct {
	Topic        string
	DocumentText string
	Count        int
	Difficulty   models.DifficultyLevel
}

// DraftQuestion is untrusted provider output; it is validated before reaching the bank
type DraftQuestion struct {
	Question      string                 `json:"question"`
	Options       []string               `json:"options"`
	CorrectAnswer int                    `json:"correct_answer"`
	Difficulty    models.DifficultyLevel `json:"difficulty"`
}

// New builds the configured generator. Gemini wins when both keys are set.
// It returns nil, nil when no provider is configured.
func New(ctx context.Context, cfg config.GenerationConfig, logger *slog.Logger) (QuestionGenerator, error) {
	switch {
	case cfg.GeminiAPIKey != "":
		model := cfg.GeminiModel
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, model, logger)
	case cfg.OpenAIAPIKey != "":
		model := cfg.OpenAIModel
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model, logger), nil
	default:
		logger.Warn("No question generation provider configured; generation is disabled")
		return nil, nil
	}
}

func buildPrompt(req GenerateRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an experienced teacher writing a multiple-choice exam.\n")
	sb.WriteString(fmt.Sprintf("Write exactly %d questions", req.Count))
	if req.Difficulty != "" {
		sb.WriteString(fmt.Sprintf(" of %s difficulty", req.Difficulty))
	}
	sb.WriteString(".\n\n")

	if req.Topic != "" {
		sb.WriteString("TOPIC: " + req.Topic + "\n\n")
	}
	if req.DocumentText != "" {
		sb.WriteString("Base every question only on the following material:\n")
		sb.WriteString("<<<\n" + req.DocumentText + "\n>>>\n\n")
	}

	sb.WriteString("RULES:\n")
	sb.WriteString(fmt.Sprintf("- Every question has exactly %d options and exactly one correct option.\n", models.OptionsPerQuestion))
	sb.WriteString("- correct_answer is the zero-based index of the correct option.\n")
	sb.WriteString("- difficulty is one of easy, medium, hard.\n")
	sb.WriteString("\nRespond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"questions": [{"question": "<text>", "options": ["<a>", "<b>", "<c>", "<d>"], "correct_answer": <0-3>, "difficulty": "<easy|medium|hard>"}]}`)
	sb.WriteString("\n")

	return sb.String()
}
