package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregates every repository used by the services
type Repository interface {
	Question() QuestionRepository
	BatchAssignment() BatchAssignmentRepository
	Exam() ExamRepository
	Session() SessionRepository
	Submission() SubmissionRepository

	// User domain (read-only, owned by Casdoor)
	User() UserRepository

	Dashboard() DashboardRepository

	// WithTransaction runs fn in one database transaction; repository calls
	// made with the supplied tx take part in it
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
