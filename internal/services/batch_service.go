package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"gorm.io/gorm"
)

type batchService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	policy    AccessPolicy
	publisher events.EventPublisher
}

func NewBatchService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, policy AccessPolicy, publisher events.EventPublisher) BatchService {
	return &batchService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		policy:    policy,
		publisher: publisher,
	}
}

func (s *batchService) AssignBatch(ctx context.Context, principal *models.User, req *AssignBatchRequest) (*models.BatchAssignment, error) {
	if err := s.policy.Require(principal, CapManageBatches); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.BatchNumber == 0 {
		err := s.RemoveBatchAssignment(ctx, principal, req.StudentID, req.SubjectID)
		if err != nil && !errors.Is(err, ErrBatchAssignmentNotFound) {
			return nil, err
		}
		return nil, nil
	}

	assignment := &models.BatchAssignment{
		TeacherID:   principal.ID,
		SubjectID:   req.SubjectID,
		StudentID:   req.StudentID,
		Class:       req.Class,
		BatchNumber: req.BatchNumber,
	}
	if err := s.repo.BatchAssignment().Upsert(ctx, s.db, assignment); err != nil {
		return nil, fmt.Errorf("failed to assign batch: %w", err)
	}

	s.logger.Info("Batch assigned",
		"student_id", req.StudentID,
		"subject_id", req.SubjectID,
		"batch_number", req.BatchNumber,
		"teacher_id", principal.ID)

	s.publish(ctx, events.BatchAssigned, assignment)
	return assignment, nil
}

func (s *batchService) RemoveBatchAssignment(ctx context.Context, principal *models.User, studentID, subjectID string) error {
	if err := s.policy.Require(principal, CapManageBatches); err != nil {
		return err
	}

	existing, err := s.repo.BatchAssignment().GetByStudentSubject(ctx, s.db, studentID, subjectID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrBatchAssignmentNotFound
		}
		return fmt.Errorf("failed to get batch assignment: %w", err)
	}

	if err := s.repo.BatchAssignment().Delete(ctx, s.db, studentID, subjectID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrBatchAssignmentNotFound
		}
		return fmt.Errorf("failed to remove batch assignment: %w", err)
	}

	s.logger.Info("Batch assignment removed", "student_id", studentID, "subject_id", subjectID, "user_id", principal.ID)
	s.publish(ctx, events.BatchRemoved, existing)
	return nil
}

func (s *batchService) GetBatchAssignments(ctx context.Context, principal *models.User, subjectID, class string) ([]*models.BatchAssignment, error) {
	if err := s.policy.Require(principal, CapManageBatches); err != nil {
		return nil, err
	}

	assignments, err := s.repo.BatchAssignment().ListByScope(ctx, s.db, repositories.BatchScope{
		TeacherID: ownerScope(principal),
		SubjectID: subjectID,
		Class:     class,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list batch assignments: %w", err)
	}
	return assignments, nil
}

// GetStudentBatch reads the primary store so a fresh assignment is visible immediately
func (s *batchService) GetStudentBatch(ctx context.Context, studentID, subjectID string) (*int, error) {
	return studentBatch(ctx, s.repo, s.db, studentID, subjectID)
}

func (s *batchService) publish(ctx context.Context, eventType events.EventType, a *models.BatchAssignment) {
	event := events.NewEvent(eventType, events.BatchChangedData{
		TeacherID:   a.TeacherID,
		SubjectID:   a.SubjectID,
		StudentID:   a.StudentID,
		Class:       a.Class,
		BatchNumber: a.BatchNumber,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish batch event", "error", err, "event_type", eventType)
	}
}

func studentBatch(ctx context.Context, repo repositories.Repository, db *gorm.DB, studentID, subjectID string) (*int, error) {
	assignment, err := repo.BatchAssignment().GetByStudentSubject(ctx, db, studentID, subjectID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student batch: %w", err)
	}
	batch := assignment.BatchNumber
	return &batch, nil
}
