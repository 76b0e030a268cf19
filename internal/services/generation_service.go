package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/generation"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

const defaultGeneratedMarks = 1

type generationService struct {
	generator    generation.QuestionGenerator
	questionBank QuestionBankService
	logger       *slog.Logger
	validator    *validator.Validator
	policy       AccessPolicy
	publisher    events.EventPublisher
	maxQuestions int
}

// NewGenerationService accepts a nil generator; the service then reports ErrGenerationDisabled
func NewGenerationService(generator generation.QuestionGenerator, questionBank QuestionBankService, logger *slog.Logger, validator *validator.Validator, policy AccessPolicy, publisher events.EventPublisher, maxQuestions int) GenerationService {
	return &generationService{
		generator:    generator,
		questionBank: questionBank,
		logger:       logger,
		validator:    validator,
		policy:       policy,
		publisher:    publisher,
		maxQuestions: maxQuestions,
	}
}

func (s *generationService) Enabled() bool {
	return s.generator != nil
}

// GenerateQuestions asks the provider for drafts and validates each one as untrusted input.
// With Save set, valid drafts go through the question bank like any other new question.
// A storage failure returns the partial response together with the error.
func (s *generationService) GenerateQuestions(ctx context.Context, principal *models.User, req *GenerateQuestionsRequest) (*GenerateQuestionsResponse, error) {
	if err := s.policy.Require(principal, CapGenerateQuestions); err != nil {
		return nil, err
	}
	if !s.Enabled() {
		return nil, ErrGenerationDisabled
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if s.maxQuestions > 0 && req.Count > s.maxQuestions {
		return nil, ValidationErrors{{
			Field:   "count",
			Message: fmt.Sprintf("must be at most %d", s.maxQuestions),
			Value:   req.Count,
			Rule:    "max",
		}}
	}

	drafts, err := s.generator.Generate(ctx, generation.GenerateRequest{
		Topic:        req.Topic,
		DocumentText: req.DocumentText,
		Count:        req.Count,
		Difficulty:   req.Difficulty,
	})
	if err != nil {
		s.logger.Error("Question generation failed", "error", err, "provider", s.generator.Provider(), "subject_id", req.SubjectID)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(drafts) > req.Count {
		drafts = drafts[:req.Count]
	}

	marks := req.Marks
	if marks <= 0 {
		marks = defaultGeneratedMarks
	}

	resp := &GenerateQuestionsResponse{
		Provider:  s.generator.Provider(),
		Requested: req.Count,
		Questions: []*models.Question{},
		Rejected:  []RejectedDraft{},
	}

	var storeErr error
	for i, draft := range drafts {
		create := &CreateQuestionRequest{
			SubjectID:     req.SubjectID,
			Text:          draft.Question,
			Options:       draft.Options,
			CorrectAnswer: draft.CorrectAnswer,
			Difficulty:    draft.Difficulty,
			Marks:         marks,
		}

		if !req.Save {
			if err := s.validator.Validate(create); err != nil {
				resp.Rejected = append(resp.Rejected, rejected(i, draft, err))
				continue
			}
			resp.Drafts = append(resp.Drafts, draft)
			continue
		}

		question, err := s.questionBank.AddQuestion(ctx, principal, create)
		if err != nil {
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				// stop here; what is already stored stays in the response
				storeErr = fmt.Errorf("failed to store generated question %d: %w", i, err)
				resp.Unsaved = append(resp.Unsaved, drafts[i:]...)
				resp.StoreError = storeErr.Error()
				break
			}
			resp.Rejected = append(resp.Rejected, rejected(i, draft, err))
			continue
		}
		resp.Questions = append(resp.Questions, question)
	}

	s.logger.Info("Questions generated",
		"provider", resp.Provider,
		"subject_id", req.SubjectID,
		"requested", req.Count,
		"accepted", len(resp.Questions)+len(resp.Drafts),
		"rejected", len(resp.Rejected),
		"unsaved", len(resp.Unsaved))

	if req.Save {
		event := events.NewEvent(events.QuestionsGenerated, events.QuestionsGeneratedData{
			SubjectID: req.SubjectID,
			TeacherID: principal.ID,
			Provider:  resp.Provider,
			Requested: req.Count,
			Stored:    len(resp.Questions),
			Rejected:  len(resp.Rejected),
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish generation event", "error", err)
		}
	}

	return resp, storeErr
}

func rejected(index int, draft generation.DraftQuestion, err error) RejectedDraft {
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		verrs = ValidationErrors{{Field: "draft", Message: err.Error()}}
	}
	return RejectedDraft{Index: index, Draft: draft, Errors: verrs}
}
