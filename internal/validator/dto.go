package validator

import (
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// CreateQuestionRequest represents the request structure for adding a question to the bank
type CreateQuestionRequest struct {
	SubjectID     string                 `json:"subject_id" validate:"required,notblank"`
	Text          string                 `json:"text" validate:"required,notblank,max=2000"`
	Options       []string               `json:"options" validate:"options"`
	CorrectAnswer int                    `json:"correct_answer" validate:"gte=0,lte=3"`
	Difficulty    models.DifficultyLevel `json:"difficulty" validate:"required,difficulty"`
	Marks         int                    `json:"marks" validate:"required,min=1"`
}

// UpdateQuestionRequest only changes the fields that are present
type UpdateQuestionRequest struct {
	Text          *string                 `json:"text" validate:"omitempty,notblank,max=2000"`
	Options       []string                `json:"options" validate:"omitempty,options"`
	CorrectAnswer *int                    `json:"correct_answer" validate:"omitempty,gte=0,lte=3"`
	Difficulty    *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty"`
	Marks         *int                    `json:"marks" validate:"omitempty,min=1"`
}

// IsEmpty reports whether the update changes nothing
func (r *UpdateQuestionRequest) IsEmpty() bool {
	return r.Text == nil && r.Options == nil && r.CorrectAnswer == nil && r.Difficulty == nil && r.Marks == nil
}

// AssignBatchRequest places a student into a batch for a subject; batch 0 removes the assignment
type AssignBatchRequest struct {
	SubjectID   string `json:"subject_id" validate:"required,notblank"`
	StudentID   string `json:"student_id" validate:"required,notblank"`
	Class       string `json:"class" validate:"max=50"`
	BatchNumber int    `json:"batch_number" validate:"gte=0"`
}

// ExamQuestionRequest selects a bank question, optionally overriding its marks
type ExamQuestionRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Marks      *int   `json:"marks"`
}

// DeployExamRequest represents a draft exam submitted for deployment
type DeployExamRequest struct {
	Title           string                `json:"title" validate:"required,notblank,max=200"`
	Description     *string               `json:"description" validate:"omitempty,max=1000"`
	SubjectID       string                `json:"subject_id" validate:"required,notblank"`
	Class           string                `json:"class" validate:"required,notblank"`
	Semester        string                `json:"semester" validate:"required,notblank"`
	DurationMinutes int                   `json:"duration_minutes" validate:"required,min=1"`
	PassPercentage  *float64              `json:"pass_percentage" validate:"omitempty,gte=0,lte=100"`
	StartTime       time.Time             `json:"start_time" validate:"required"`
	EndTime         time.Time             `json:"end_time" validate:"required,gtfield=StartTime"`
	Batches         []int                 `json:"batches" validate:"required,min=1,unique,dive,min=1"`
	Questions       []ExamQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// GenerateQuestionsRequest asks the generation provider for draft questions
type GenerateQuestionsRequest struct {
	SubjectID    string                 `json:"subject_id" validate:"required,notblank"`
	Topic        string                 `json:"topic" validate:"required_without=DocumentText,max=500"`
	DocumentText string                 `json:"document_text" validate:"max=20000"`
	Count        int                    `json:"count" validate:"required,min=1,max=50"`
	Difficulty   models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty"`
	Marks        int                    `json:"marks" validate:"omitempty,min=1"`
	Save         bool                   `json:"save"`
}

// SelectAnswerRequest sets or clears the selected option of a question
type SelectAnswerRequest struct {
	SelectedOption *int `json:"selected_option" validate:"omitempty,gte=0,lte=3"`
}

type FlagQuestionRequest struct {
	Flagged bool `json:"flagged"`
}

type SetExamActiveRequest struct {
	IsActive bool `json:"is_active"`
}
