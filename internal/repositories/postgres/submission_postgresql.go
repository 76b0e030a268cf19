package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

// Create inserts the submission and its answers. idx_submission_exam_student
// rejects a second row for the same exam and student.
func (s *SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	db := getDB(s.db, tx)
	if err := db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *SubmissionPostgreSQL) GetByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (*models.Submission, error) {
	db := getDB(s.db, tx)
	var submission models.Submission
	if err := db.WithContext(ctx).
		Preload("Answers", orderedQuestions).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&submission).Error; err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) ExistsByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (bool, error) {
	db := getDB(s.db, tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check submission: %w", err)
	}
	return count > 0, nil
}

func (s *SubmissionPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID string) ([]*models.Submission, error) {
	db := getDB(s.db, tx)
	var submissions []*models.Submission
	if err := db.WithContext(ctx).
		Preload("Answers", orderedQuestions).
		Where("exam_id = ?", examID).
		Order("marks_obtained DESC, submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list exam submissions: %w", err)
	}
	return submissions, nil
}

func (s *SubmissionPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Submission, error) {
	db := getDB(s.db, tx)
	var submissions []*models.Submission
	if err := db.WithContext(ctx).
		Preload("Answers", orderedQuestions).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list student submissions: %w", err)
	}
	return submissions, nil
}

// SubmittedExamIDs reports which of examIDs the student has already submitted
func (s *SubmissionPostgreSQL) SubmittedExamIDs(ctx context.Context, tx *gorm.DB, studentID string, examIDs []string) (map[string]bool, error) {
	submitted := make(map[string]bool)
	if len(examIDs) == 0 {
		return submitted, nil
	}

	db := getDB(s.db, tx)
	var ids []string
	if err := db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("student_id = ? AND exam_id IN ?", studentID, examIDs).
		Pluck("exam_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get submitted exams: %w", err)
	}

	for _, id := range ids {
		submitted[id] = true
	}
	return submitted, nil
}

func (s *SubmissionPostgreSQL) CountByExam(ctx context.Context, tx *gorm.DB, examID string) (int64, error) {
	db := getDB(s.db, tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}
