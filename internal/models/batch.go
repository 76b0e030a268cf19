package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BatchAssignment places a student in a numbered batch for one subject.
// A student has at most one assignment per subject.
type BatchAssignment struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	TeacherID   string    `json:"teacher_id" gorm:"not null;index:idx_batch_scope;size:255"`
	SubjectID   string    `json:"subject_id" gorm:"not null;uniqueIndex:idx_batch_student_subject;index:idx_batch_scope;size:255"`
	StudentID   string    `json:"student_id" gorm:"not null;uniqueIndex:idx_batch_student_subject;size:255"`
	Class       string    `json:"class" gorm:"not null;index:idx_batch_scope;size:100"`
	BatchNumber int       `json:"batch_number" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (BatchAssignment) TableName() string {
	return "batch_assignments"
}

func (b *BatchAssignment) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
