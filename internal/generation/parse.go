package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ParseDraftQuestions accepts {"questions": [...]}, a bare array, or prose wrapping an array
func ParseDraftQuestions(raw string, fallback models.DifficultyLevel) ([]DraftQuestion, error) {
	raw = strings.TrimSpace(raw)

	var envelope struct {
		Questions []DraftQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil && len(envelope.Questions) > 0 {
		return normalize(envelope.Questions, fallback), nil
	}

	var drafts []DraftQuestion
	if err := json.Unmarshal([]byte(raw), &drafts); err == nil {
		return nonEmpty(normalize(drafts, fallback))
	}

	block := jsonArrayPattern.FindString(raw)
	if block == "" {
		return nil, fmt.Errorf("no JSON array in provider response")
	}
	if err := json.Unmarshal([]byte(block), &drafts); err != nil {
		return nil, fmt.Errorf("parse provider response: %w", err)
	}
	return nonEmpty(normalize(drafts, fallback))
}

func nonEmpty(drafts []DraftQuestion) ([]DraftQuestion, error) {
	if len(drafts) == 0 {
		return nil, ErrNoDraftQuestions
	}
	return drafts, nil
}

func normalize(drafts []DraftQuestion, fallback models.DifficultyLevel) []DraftQuestion {
	for i := range drafts {
		drafts[i].Question = strings.TrimSpace(drafts[i].Question)
		drafts[i].Difficulty = models.DifficultyLevel(strings.ToLower(strings.TrimSpace(string(drafts[i].Difficulty))))
		if drafts[i].Difficulty == "" {
			drafts[i].Difficulty = fallback
		}
		for j := range drafts[i].Options {
			drafts[i].Options[j] = strings.TrimSpace(drafts[i].Options[j])
		}
	}
	return drafts
}
