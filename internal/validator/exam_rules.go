package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ExamRules bounds the composition of a deployable exam. Zero total-mark bounds disable those checks.
type ExamRules struct {
	MinQuestions         int
	MaxQuestions         int
	MinMarksPerQuestion  int
	MaxMarksPerQuestion  int
	MinTotalMarks        int
	MaxTotalMarks        int
	RequiredDifficulties []models.DifficultyLevel
}

func DefaultExamRules() ExamRules {
	return ExamRules{
		MinQuestions:        5,
		MaxQuestions:        100,
		MinMarksPerQuestion: 1,
		MaxMarksPerQuestion: 10,
		RequiredDifficulties: []models.DifficultyLevel{
			models.DifficultyEasy,
			models.DifficultyMedium,
			models.DifficultyHard,
		},
	}
}

// TotalMarksRules bounds the exam total instead of each question
func TotalMarksRules() ExamRules {
	return ExamRules{
		MinQuestions:  5,
		MaxQuestions:  100,
		MinTotalMarks: 10,
		MaxTotalMarks: 100,
		RequiredDifficulties: []models.DifficultyLevel{
			models.DifficultyEasy,
			models.DifficultyMedium,
			models.DifficultyHard,
		},
	}
}

type ExamQuestionInput struct {
	Difficulty models.DifficultyLevel
	Marks      int
}

type ExamValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidateExamQuestions checks every rule and reports one message per failed rule
func ValidateExamQuestions(questions []ExamQuestionInput, rules ExamRules) ExamValidationResult {
	errs := []string{}

	if len(questions) < rules.MinQuestions {
		errs = append(errs, fmt.Sprintf("Minimum %d questions required", rules.MinQuestions))
	}
	if rules.MaxQuestions > 0 && len(questions) > rules.MaxQuestions {
		errs = append(errs, fmt.Sprintf("Maximum %d questions allowed", rules.MaxQuestions))
	}

	total := 0
	outOfRange := false
	present := make(map[models.DifficultyLevel]bool, 3)
	for _, q := range questions {
		total += q.Marks
		present[q.Difficulty] = true
		if rules.MaxMarksPerQuestion > 0 && (q.Marks < rules.MinMarksPerQuestion || q.Marks > rules.MaxMarksPerQuestion) {
			outOfRange = true
		}
	}

	if outOfRange {
		errs = append(errs, fmt.Sprintf("Marks per question must be between %d and %d",
			rules.MinMarksPerQuestion, rules.MaxMarksPerQuestion))
	}
	if rules.MinTotalMarks > 0 && total < rules.MinTotalMarks {
		errs = append(errs, fmt.Sprintf("Total marks must be at least %d", rules.MinTotalMarks))
	}
	if rules.MaxTotalMarks > 0 && total > rules.MaxTotalMarks {
		errs = append(errs, fmt.Sprintf("Total marks cannot exceed %d", rules.MaxTotalMarks))
	}

	var missing []string
	for _, d := range rules.RequiredDifficulties {
		if !present[d] {
			missing = append(missing, string(d))
		}
	}
	if len(missing) > 0 {
		errs = append(errs, "Missing questions of difficulty: "+strings.Join(missing, ", "))
	}

	return ExamValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}
