package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// OptionsPerQuestion is the fixed number of choices of a multiple choice question.
const OptionsPerQuestion = 4

func (d DifficultyLevel) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a bank entry owned by the teacher who authored it.
type Question struct {
	ID            string                      `json:"id" gorm:"primaryKey;size:36"`
	SubjectID     string                      `json:"subject_id" gorm:"not null;index;size:255"`
	TeacherID     string                      `json:"teacher_id" gorm:"not null;index;size:255"`
	Text          string                      `json:"text" gorm:"type:text;not null"`
	Options       datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb;not null"`
	CorrectAnswer int                         `json:"correct_answer" gorm:"not null"`
	Difficulty    DifficultyLevel             `json:"difficulty" gorm:"not null;default:medium;index"`
	Marks         int                         `json:"marks" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
