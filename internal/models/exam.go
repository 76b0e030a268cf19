package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultPassPercentage applies when an exam is deployed without its own threshold.
const DefaultPassPercentage = 40.0

// Exam is a deployed exam. Apart from IsActive it is read-only after deployment.
// (lower(title), class, semester) is unique, see idx_exam_title_class_semester.
type Exam struct {
	ID              string                   `json:"id" gorm:"primaryKey;size:36"`
	Title           string                   `json:"title" gorm:"not null;size:200"`
	Description     *string                  `json:"description" gorm:"type:text"`
	SubjectID       string                   `json:"subject_id" gorm:"not null;index;size:255"`
	TeacherID       string                   `json:"teacher_id" gorm:"not null;index;size:255"`
	Class           string                   `json:"class" gorm:"not null;index:idx_exam_cohort;size:100"`
	Semester        string                   `json:"semester" gorm:"not null;index:idx_exam_cohort;size:50"`
	DurationMinutes int                      `json:"duration_minutes" gorm:"not null"`
	TotalMarks      int                      `json:"total_marks" gorm:"not null"`
	PassPercentage  *float64                 `json:"pass_percentage"`
	StartTime       time.Time                `json:"start_time" gorm:"not null"`
	EndTime         time.Time                `json:"end_time" gorm:"not null;index"`
	IsActive        bool                     `json:"is_active" gorm:"not null;default:true;index"`
	Batches         datatypes.JSONSlice[int] `json:"batches" gorm:"type:jsonb;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []ExamQuestion `json:"questions,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
}

func (Exam) TableName() string {
	return "exams"
}

func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// ExamQuestion is the snapshot of a bank question taken at deployment.
// It carries its own copy of every field used for display and grading.
type ExamQuestion struct {
	ID               string                      `json:"id" gorm:"primaryKey;size:36"`
	ExamID           string                      `json:"exam_id" gorm:"not null;index;size:36"`
	Position         int                         `json:"position" gorm:"not null"`
	SourceQuestionID string                      `json:"source_question_id" gorm:"size:36"`
	Text             string                      `json:"text" gorm:"type:text;not null"`
	Options          datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb;not null"`
	CorrectAnswer    int                         `json:"correct_answer" gorm:"not null"`
	Difficulty       DifficultyLevel             `json:"difficulty" gorm:"not null"`
	Marks            int                         `json:"marks" gorm:"not null"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

func (q *ExamQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// HasBatch reports whether students of the given batch may sit the exam.
func (e *Exam) HasBatch(batch int) bool {
	return slices.Contains(e.Batches, batch)
}

// IsOpenAt reports whether t falls inside [StartTime, EndTime].
func (e *Exam) IsOpenAt(t time.Time) bool {
	return !t.Before(e.StartTime) && !t.After(e.EndTime)
}

func (e *Exam) HasEndedAt(t time.Time) bool {
	return t.After(e.EndTime)
}

// ResultsVisibleAt is true once the window has closed (now >= end_time).
func (e *Exam) ResultsVisibleAt(t time.Time) bool {
	return !t.Before(e.EndTime)
}

func (e *Exam) EffectivePassPercentage() float64 {
	if e.PassPercentage == nil {
		return DefaultPassPercentage
	}
	return *e.PassPercentage
}

// SumMarks totals the marks of the embedded snapshot.
func (e *Exam) SumMarks() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Marks
	}
	return total
}
