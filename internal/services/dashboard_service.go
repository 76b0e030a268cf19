package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

// ===== RESPONSE DTOs =====

type TeacherDashboard struct {
	Overview               DashboardOverview                `json:"overview"`
	Metrics                DashboardMetrics                 `json:"metrics"`
	RecentSubmissions      []RecentSubmissionResponse       `json:"recent_submissions"`
	DifficultyDistribution []DifficultyDistributionResponse `json:"difficulty_distribution"`
}

type DashboardOverview struct {
	TotalQuestions   int64 `json:"total_questions"`
	TotalExams       int64 `json:"total_exams"`
	TotalSubmissions int64 `json:"total_submissions"`
}

type DashboardMetrics struct {
	PassRate          float64 `json:"pass_rate"`
	AveragePercentage float64 `json:"average_percentage"`
}

type RecentSubmissionResponse struct {
	repositories.RecentSubmissionData
	TimeAgo string `json:"time_ago"`
}

type DifficultyDistributionResponse struct {
	Difficulty string  `json:"difficulty"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

const recentSubmissionsLimit = 10

// ===== SERVICE IMPLEMENTATION =====

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	policy AccessPolicy
	now    func() time.Time
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, policy AccessPolicy) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
		policy: policy,
		now:    time.Now,
	}
}

// GetTeacherDashboard summarizes the caller's bank, exams and submissions; admins see every teacher
func (s *dashboardService) GetTeacherDashboard(ctx context.Context, principal *models.User) (*TeacherDashboard, error) {
	if err := s.policy.Require(principal, CapDeployExams); err != nil {
		return nil, err
	}
	teacherID := ownerScope(principal)
	s.logger.Info("Getting teacher dashboard", "user_id", principal.ID)

	totalQuestions, err := s.repo.Dashboard().CountQuestions(ctx, s.db, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	totalExams, err := s.repo.Dashboard().CountExams(ctx, s.db, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to count exams: %w", err)
	}

	totalSubmissions, err := s.repo.Dashboard().CountSubmissions(ctx, s.db, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	passRate, err := s.repo.Dashboard().GetPassRate(ctx, s.db, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pass rate: %w", err)
	}

	averagePercentage, err := s.repo.Dashboard().GetAveragePercentage(ctx, s.db, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get average percentage: %w", err)
	}

	recent, err := s.repo.Dashboard().GetRecentSubmissions(ctx, s.db, teacherID, recentSubmissionsLimit)
	if err != nil {
		s.logger.Warn("Failed to get recent submissions", "error", err)
		recent = nil
	}

	distribution, err := s.repo.Dashboard().GetDifficultyDistribution(ctx, s.db, teacherID)
	if err != nil {
		s.logger.Warn("Failed to get difficulty distribution", "error", err)
		distribution = nil
	}

	now := s.now()
	dashboard := &TeacherDashboard{
		Overview: DashboardOverview{
			TotalQuestions:   totalQuestions,
			TotalExams:       totalExams,
			TotalSubmissions: totalSubmissions,
		},
		Metrics: DashboardMetrics{
			PassRate:          roundFloat(passRate, 1),
			AveragePercentage: roundFloat(averagePercentage, 1),
		},
		RecentSubmissions:      make([]RecentSubmissionResponse, len(recent)),
		DifficultyDistribution: make([]DifficultyDistributionResponse, len(distribution)),
	}

	for i, r := range recent {
		dashboard.RecentSubmissions[i] = RecentSubmissionResponse{
			RecentSubmissionData: r,
			TimeAgo:              formatTimeAgo(now.Sub(r.SubmittedAt)),
		}
	}

	var total int64
	for _, d := range distribution {
		total += d.Count
	}
	for i, d := range distribution {
		percentage := 0.0
		if total > 0 {
			percentage = 100 * float64(d.Count) / float64(total)
		}
		dashboard.DifficultyDistribution[i] = DifficultyDistributionResponse{
			Difficulty: d.Difficulty,
			Count:      d.Count,
			Percentage: roundFloat(percentage, 1),
		}
	}

	return dashboard, nil
}

// ===== HELPER FUNCTIONS =====

func roundFloat(val float64, precision int) float64 {
	ratio := 1.0
	for i := 0; i < precision; i++ {
		ratio *= 10
	}
	return float64(int(val*ratio+0.5)) / ratio
}

func formatTimeAgo(duration time.Duration) string {
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(duration.Hours()))
	case duration < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(duration.Hours()/24))
	default:
		return fmt.Sprintf("%d weeks ago", int(duration.Hours()/(24*7)))
	}
}
