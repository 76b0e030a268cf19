package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// RosterFilters narrows the student roster
type RosterFilters struct {
	Class    string
	Semester string
}

// UserRepository is a read-only view of the identity provider
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ListStudents(ctx context.Context, filters RosterFilters) ([]*models.User, error)
}
