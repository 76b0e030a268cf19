package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
)

type AnswerStatus string

const (
	AnswerUnanswered AnswerStatus = "unanswered"
	AnswerAnswered   AnswerStatus = "answered"
	AnswerFlagged    AnswerStatus = "flagged"
)

// ExamSession tracks one student's attempt at one exam.
type ExamSession struct {
	ID          string        `json:"id" gorm:"primaryKey;size:36"`
	ExamID      string        `json:"exam_id" gorm:"not null;uniqueIndex:idx_session_exam_student;size:36"`
	StudentID   string        `json:"student_id" gorm:"not null;uniqueIndex:idx_session_exam_student;size:255"`
	Status      SessionStatus `json:"status" gorm:"not null;default:in_progress;index"`
	StartedAt   *time.Time    `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []SessionAnswer `json:"answers" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (ExamSession) TableName() string {
	return "exam_sessions"
}

func (s *ExamSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SessionAnswer is the working state of one question inside a session.
type SessionAnswer struct {
	ID             string       `json:"id" gorm:"primaryKey;size:36"`
	SessionID      string       `json:"session_id" gorm:"not null;uniqueIndex:idx_session_answer_question;size:36"`
	ExamQuestionID string       `json:"exam_question_id" gorm:"not null;uniqueIndex:idx_session_answer_question;size:36"`
	Position       int          `json:"position" gorm:"not null"`
	SelectedOption *int         `json:"selected_option"`
	Status         AnswerStatus `json:"status" gorm:"not null;default:unanswered"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (SessionAnswer) TableName() string {
	return "session_answers"
}

func (a *SessionAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Selections returns the selected option per exam question id.
func (s *ExamSession) Selections() map[string]*int {
	selections := make(map[string]*int, len(s.Answers))
	for _, a := range s.Answers {
		selections[a.ExamQuestionID] = a.SelectedOption
	}
	return selections
}
