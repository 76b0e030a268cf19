package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionPass SubmissionStatus = "pass"
	SubmissionFail SubmissionStatus = "fail"
)

type SubmitReason string

const (
	SubmitManual  SubmitReason = "manual"
	SubmitTimeout SubmitReason = "timeout"
)

// Submission is the graded, immutable outcome of a session.
// Exactly one row exists per (exam_id, student_id).
type Submission struct {
	ID             string           `json:"id" gorm:"primaryKey;size:36"`
	ExamID         string           `json:"exam_id" gorm:"not null;uniqueIndex:idx_submission_exam_student;size:36"`
	StudentID      string           `json:"student_id" gorm:"not null;uniqueIndex:idx_submission_exam_student;index;size:255"`
	StudentName    string           `json:"student_name" gorm:"size:255"`
	TotalQuestions int              `json:"total_questions" gorm:"not null"`
	CorrectAnswers int              `json:"correct_answers" gorm:"not null"`
	WrongAnswers   int              `json:"wrong_answers" gorm:"not null"`
	MarksObtained  int              `json:"marks_obtained" gorm:"not null"`
	TotalMarks     int              `json:"total_marks" gorm:"not null"`
	Percentage     float64          `json:"percentage" gorm:"not null"`
	Status         SubmissionStatus `json:"status" gorm:"not null;index"`
	SubmitReason   SubmitReason     `json:"submit_reason" gorm:"size:20"`
	SubmittedAt    time.Time        `json:"submitted_at" gorm:"not null"`

	Answers []SubmissionAnswer `json:"answers,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type SubmissionAnswer struct {
	ID             string `json:"id" gorm:"primaryKey;size:36"`
	SubmissionID   string `json:"submission_id" gorm:"not null;index;size:36"`
	Position       int    `json:"position" gorm:"not null"`
	ExamQuestionID string `json:"question_id" gorm:"not null;size:36"`
	SelectedOption *int   `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
	MarksObtained  int    `json:"marks_obtained"`
}

func (SubmissionAnswer) TableName() string {
	return "submission_answers"
}

func (a *SubmissionAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (s *Submission) Passed() bool {
	return s.Status == SubmissionPass
}
