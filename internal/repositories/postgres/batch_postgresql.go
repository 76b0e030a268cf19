package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchAssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewBatchAssignmentPostgreSQL(db *gorm.DB) repositories.BatchAssignmentRepository {
	return &BatchAssignmentPostgreSQL{db: db}
}

// Upsert inserts the assignment or overwrites the row held for the same
// (student_id, subject_id) in a single statement
func (b *BatchAssignmentPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, assignment *models.BatchAssignment) error {
	db := getDB(b.db, tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"id", "teacher_id", "class", "batch_number", "created_at"}),
		}).
		Create(assignment).Error
	if err != nil {
		return fmt.Errorf("failed to upsert batch assignment: %w", err)
	}
	return nil
}

func (b *BatchAssignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, studentID, subjectID string) error {
	db := getDB(b.db, tx)
	result := db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ?", studentID, subjectID).
		Delete(&models.BatchAssignment{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete batch assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete batch assignment: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

func (b *BatchAssignmentPostgreSQL) GetByStudentSubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) (*models.BatchAssignment, error) {
	db := getDB(b.db, tx)
	var assignment models.BatchAssignment
	if err := db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ?", studentID, subjectID).
		First(&assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to get batch assignment: %w", err)
	}
	return &assignment, nil
}

func (b *BatchAssignmentPostgreSQL) ListByScope(ctx context.Context, tx *gorm.DB, scope repositories.BatchScope) ([]*models.BatchAssignment, error) {
	db := getDB(b.db, tx)
	query := db.WithContext(ctx).Where("subject_id = ?", scope.SubjectID)
	if scope.TeacherID != "" {
		query = query.Where("teacher_id = ?", scope.TeacherID)
	}
	if scope.Class != "" {
		query = query.Where("class = ?", scope.Class)
	}

	var assignments []*models.BatchAssignment
	if err := query.
		Order("batch_number ASC, student_id ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list batch assignments: %w", err)
	}
	return assignments, nil
}

func (b *BatchAssignmentPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.BatchAssignment, error) {
	db := getDB(b.db, tx)
	var assignments []*models.BatchAssignment
	if err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list student batch assignments: %w", err)
	}
	return assignments, nil
}

func (b *BatchAssignmentPostgreSQL) ListBySubjectClass(ctx context.Context, tx *gorm.DB, subjectID, class string) ([]*models.BatchAssignment, error) {
	db := getDB(b.db, tx)
	var assignments []*models.BatchAssignment
	if err := db.WithContext(ctx).
		Where("subject_id = ? AND class = ?", subjectID, class).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list subject batch assignments: %w", err)
	}
	return assignments, nil
}
