package generation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

func TestParseDraftQuestions(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantCount int
		wantErr   bool
	}{
		{"envelope", `{"questions": [{"question": "Q1", "options": ["a","b","c","d"], "correct_answer": 2, "difficulty": "Hard"}]}`, 1, false},
		{"bare array", `[{"question": "Q1", "options": ["a","b","c","d"], "correct_answer": 0}, {"question": "Q2", "options": ["a","b","c","d"], "correct_answer": 1}]`, 2, false},
		{"wrapped in prose", "Here you go:\n```json\n[{\"question\": \"Q1\", \"options\": [\"a\",\"b\",\"c\",\"d\"], \"correct_answer\": 3}]\n```\nGood luck!", 1, false},
		{"no array", "I cannot help with that.", 0, true},
		{"empty array", `{"questions": []}`, 0, true},
		{"broken json", `[{"question": "Q1",`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDraftQuestions(tt.raw, models.DifficultyMedium)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDraftQuestions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.wantCount {
				t.Errorf("len = %d, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestParseDraftQuestions_Normalizes(t *testing.T) {
	got, err := ParseDraftQuestions(`[{"question": "  Q1 ", "options": [" a ","b","c","d"], "correct_answer": 1, "difficulty": " HARD "}, {"question": "Q2", "options": ["a","b","c","d"], "correct_answer": 0}]`, models.DifficultyEasy)
	if err != nil {
		t.Fatalf("ParseDraftQuestions() error = %v", err)
	}
	if got[0].Question != "Q1" || got[0].Options[0] != "a" {
		t.Errorf("whitespace not trimmed: %+v", got[0])
	}
	if got[0].Difficulty != models.DifficultyHard {
		t.Errorf("difficulty = %q, want hard", got[0].Difficulty)
	}
	if got[1].Difficulty != models.DifficultyEasy {
		t.Errorf("fallback difficulty = %q, want easy", got[1].Difficulty)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(GenerateRequest{Topic: "Photosynthesis", Count: 7, Difficulty: models.DifficultyHard})
	for _, want := range []string{"exactly 7 questions", "hard difficulty", "TOPIC: Photosynthesis", `"questions"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "material") {
		t.Error("prompt should not mention material without a document")
	}

	prompt = buildPrompt(GenerateRequest{DocumentText: "Chlorophyll absorbs light.", Count: 1})
	if !strings.Contains(prompt, "Chlorophyll absorbs light.") {
		t.Error("prompt should embed the document")
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	content := `{"questions": [{"question": "2+2?", "options": ["3","4","5","6"], "correct_answer": 1, "difficulty": "easy"}]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(server.URL+"/v1", "test-key", "test-model", slog.Default())
	drafts, err := gen.Generate(context.Background(), GenerateRequest{Topic: "arithmetic", Count: 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(drafts) != 1 || drafts[0].CorrectAnswer != 1 || drafts[0].Question != "2+2?" {
		t.Errorf("drafts = %+v", drafts)
	}
	if gen.Provider() != ProviderOpenAI {
		t.Errorf("Provider() = %s", gen.Provider())
	}
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(server.URL, "k", "m", slog.Default())
	_, err := gen.Generate(context.Background(), GenerateRequest{Topic: "x", Count: 1})
	if !errors.Is(err, ErrNoDraftQuestions) {
		t.Errorf("error = %v, want ErrNoDraftQuestions", err)
	}
}

func TestNew_Disabled(t *testing.T) {
	gen, err := New(context.Background(), config.GenerationConfig{}, slog.Default())
	if err != nil || gen != nil {
		t.Errorf("New() = %v, %v; want nil, nil", gen, err)
	}

	gen, err = New(context.Background(), config.GenerationConfig{OpenAIAPIKey: "k"}, slog.Default())
	if err != nil || gen == nil || gen.Provider() != ProviderOpenAI {
		t.Errorf("New() with openai key = %v, %v", gen, err)
	}
}
