package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

// teacherScope limits a query to one teacher; an empty id means every teacher
func teacherScope(column, teacherID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if teacherID == "" {
			return db
		}
		return db.Where(column+" = ?", teacherID)
	}
}

func (r *dashboardRepository) submissionsOf(ctx context.Context, tx *gorm.DB, teacherID string) *gorm.DB {
	return getDB(r.db, tx).WithContext(ctx).
		Table("submissions").
		Joins("JOIN exams ON exams.id = submissions.exam_id").
		Scopes(teacherScope("exams.teacher_id", teacherID))
}

// ===== DASHBOARD STATS =====

func (r *dashboardRepository) CountQuestions(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Scopes(teacherScope("teacher_id", teacherID)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total questions: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountExams(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Exam{}).
		Scopes(teacherScope("teacher_id", teacherID)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total exams: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountSubmissions(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	var count int64
	if err := r.submissionsOf(ctx, tx, teacherID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total submissions: %w", err)
	}
	return count, nil
}

// ===== METRICS =====

func (r *dashboardRepository) GetPassRate(ctx context.Context, tx *gorm.DB, teacherID string) (float64, error) {
	var result struct {
		Total  int64
		Passed int64
	}

	if err := r.submissionsOf(ctx, tx, teacherID).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE submissions.status = ?) AS passed", models.SubmissionPass).
		Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to get pass rate: %w", err)
	}

	if result.Total == 0 {
		return 0, nil
	}
	return float64(result.Passed) / float64(result.Total) * 100, nil
}

func (r *dashboardRepository) GetAveragePercentage(ctx context.Context, tx *gorm.DB, teacherID string) (float64, error) {
	var result struct {
		AvgPercentage float64
	}

	if err := r.submissionsOf(ctx, tx, teacherID).
		Select("COALESCE(AVG(submissions.percentage), 0) AS avg_percentage").
		Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to get average percentage: %w", err)
	}

	return result.AvgPercentage, nil
}

// ===== RECENT ACTIVITY =====

func (r *dashboardRepository) GetRecentSubmissions(ctx context.Context, tx *gorm.DB, teacherID string, limit int) ([]repositories.RecentSubmissionData, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var rows []repositories.RecentSubmissionData
	if err := r.submissionsOf(ctx, tx, teacherID).
		Select("submissions.id AS submission_id, submissions.exam_id, exams.title AS exam_title, " +
			"submissions.student_id, submissions.student_name, submissions.percentage, " +
			"submissions.status, submissions.submitted_at").
		Order("submissions.submitted_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent submissions: %w", err)
	}

	return rows, nil
}

func (r *dashboardRepository) GetDifficultyDistribution(ctx context.Context, tx *gorm.DB, teacherID string) ([]repositories.DifficultyDistributionData, error) {
	var rows []repositories.DifficultyDistributionData
	if err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Scopes(teacherScope("teacher_id", teacherID)).
		Select("difficulty, COUNT(*) AS count").
		Group("difficulty").
		Order("difficulty").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get difficulty distribution: %w", err)
	}
	return rows, nil
}
