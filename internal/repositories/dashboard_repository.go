package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardRepository interface for teacher overview statistics
type DashboardRepository interface {
	CountQuestions(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error)
	CountExams(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error)
	CountSubmissions(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error)
	GetPassRate(ctx context.Context, tx *gorm.DB, teacherID string) (float64, error)
	GetAveragePercentage(ctx context.Context, tx *gorm.DB, teacherID string) (float64, error)
	GetRecentSubmissions(ctx context.Context, tx *gorm.DB, teacherID string, limit int) ([]RecentSubmissionData, error)
	GetDifficultyDistribution(ctx context.Context, tx *gorm.DB, teacherID string) ([]DifficultyDistributionData, error)
}

type RecentSubmissionData struct {
	SubmissionID string    `json:"submission_id"`
	ExamID       string    `json:"exam_id"`
	ExamTitle    string    `json:"exam_title"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	Percentage   float64   `json:"percentage"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type DifficultyDistributionData struct {
	Difficulty string `json:"difficulty"`
	Count      int64  `json:"count"`
}
