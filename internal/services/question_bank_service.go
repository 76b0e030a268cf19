package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"gorm.io/gorm"
)

type questionBankService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	policy    AccessPolicy
}

func NewQuestionBankService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, policy AccessPolicy) QuestionBankService {
	return &questionBankService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		policy:    policy,
	}
}

func (s *questionBankService) AddQuestion(ctx context.Context, principal *models.User, req *CreateQuestionRequest) (*models.Question, error) {
	if err := s.policy.Require(principal, CapManageQuestions); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question := &models.Question{
		SubjectID:     req.SubjectID,
		TeacherID:     principal.ID,
		Text:          req.Text,
		Options:       append([]string(nil), req.Options...),
		CorrectAnswer: req.CorrectAnswer,
		Difficulty:    req.Difficulty,
		Marks:         req.Marks,
	}

	if err := s.repo.Question().Create(ctx, s.db, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question added",
		"question_id", question.ID,
		"subject_id", question.SubjectID,
		"teacher_id", question.TeacherID)

	return question, nil
}

func (s *questionBankService) UpdateQuestion(ctx context.Context, principal *models.User, id string, req *UpdateQuestionRequest) (*models.Question, error) {
	if err := s.policy.Require(principal, CapManageQuestions); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.loadQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanManageQuestion(principal, question); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return question, nil
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Options != nil {
		question.Options = append([]string(nil), req.Options...)
	}
	if req.CorrectAnswer != nil {
		question.CorrectAnswer = *req.CorrectAnswer
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Marks != nil {
		question.Marks = *req.Marks
	}

	if err := s.repo.Question().Update(ctx, s.db, question); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated", "question_id", id, "user_id", principal.ID)
	return question, nil
}

func (s *questionBankService) DeleteQuestion(ctx context.Context, principal *models.User, id string) error {
	if err := s.policy.Require(principal, CapManageQuestions); err != nil {
		return err
	}

	question, err := s.loadQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.CanManageQuestion(principal, question); err != nil {
		return err
	}

	// deployed exams keep their own snapshot, so nothing else is touched
	if err := s.repo.Question().Delete(ctx, s.db, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted", "question_id", id, "user_id", principal.ID)
	return nil
}

func (s *questionBankService) GetQuestion(ctx context.Context, principal *models.User, id string) (*models.Question, error) {
	if err := s.policy.Require(principal, CapManageQuestions); err != nil {
		return nil, err
	}
	return s.loadQuestion(ctx, id)
}

func (s *questionBankService) ListBySubject(ctx context.Context, principal *models.User, subjectID string, filters repositories.QuestionFilters) ([]*models.Question, error) {
	if err := s.policy.Require(principal, CapManageQuestions); err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().ListBySubject(ctx, s.db, subjectID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (s *questionBankService) loadQuestion(ctx context.Context, id string) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}
