package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

// Create inserts the session with one answer row per snapshot question
func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	db := getDB(s.db, tx)
	if err := db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create exam session: %w", err)
	}
	return nil
}

func (s *SessionPostgreSQL) GetByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (*models.ExamSession, error) {
	db := getDB(s.db, tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).
		Preload("Answers", orderedQuestions).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to get exam session: %w", err)
	}
	return &session, nil
}

// UpdateAnswer writes selection and status; a nil selection is stored as NULL
func (s *SessionPostgreSQL) UpdateAnswer(ctx context.Context, tx *gorm.DB, answer *models.SessionAnswer) error {
	db := getDB(s.db, tx)
	result := db.WithContext(ctx).
		Model(&models.SessionAnswer{}).
		Where("id = ?", answer.ID).
		Updates(map[string]interface{}{
			"selected_option": answer.SelectedOption,
			"status":          answer.Status,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update session answer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update session answer %s: %w", answer.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *SessionPostgreSQL) MarkSubmitted(ctx context.Context, tx *gorm.DB, sessionID string, at time.Time) (bool, error) {
	db := getDB(s.db, tx)
	result := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionInProgress).
		Updates(map[string]interface{}{
			"status":       models.SessionSubmitted,
			"submitted_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to close exam session: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListExpired returns in-progress sessions whose exam end_time is before now; end_time is the only session boundary
func (s *SessionPostgreSQL) ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamSession, error) {
	db := getDB(s.db, tx)
	var sessions []*models.ExamSession
	if err := db.WithContext(ctx).
		Preload("Answers", orderedQuestions).
		Joins("JOIN exams ON exams.id = exam_sessions.exam_id").
		Where("exam_sessions.status = ? AND exams.end_time < ?", models.SessionInProgress, now).
		Order("exams.end_time ASC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	return sessions, nil
}
