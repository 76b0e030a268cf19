package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type examService struct {
	repo        repositories.Repository
	db          *gorm.DB
	logger      *slog.Logger
	validator   *validator.Validator
	policy      AccessPolicy
	publisher   events.EventPublisher
	rules       validator.ExamRules
	defaultPass float64
	eligibility eligibility
	now         func() time.Time
}

func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, policy AccessPolicy, publisher events.EventPublisher, rules validator.ExamRules, defaultPass float64) ExamService {
	return &examService{
		repo:        repo,
		db:          db,
		logger:      logger,
		validator:   validator,
		policy:      policy,
		publisher:   publisher,
		rules:       rules,
		defaultPass: defaultPass,
		eligibility: eligibility{repo: repo, db: db},
		now:         time.Now,
	}
}

// ===== DEPLOYMENT =====

func (s *examService) ValidateDraft(ctx context.Context, principal *models.User, req *DeployExamRequest) (*validator.ExamValidationResult, error) {
	if err := s.policy.Require(principal, CapDeployExams); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	snapshot, err := s.buildSnapshot(ctx, principal, req)
	if err != nil {
		return nil, err
	}

	result := validator.ValidateExamQuestions(examInputs(snapshot), s.rules)
	return &result, nil
}

func (s *examService) DeployExam(ctx context.Context, principal *models.User, req *DeployExamRequest) (*models.Exam, error) {
	if err := s.policy.Require(principal, CapDeployExams); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	snapshot, err := s.buildSnapshot(ctx, principal, req)
	if err != nil {
		return nil, err
	}

	if result := validator.ValidateExamQuestions(examInputs(snapshot), s.rules); !result.IsValid {
		return nil, &ExamValidationError{Errors: result.Errors}
	}

	title := strings.TrimSpace(req.Title)
	exam := &models.Exam{
		Title:           title,
		Description:     req.Description,
		SubjectID:       req.SubjectID,
		TeacherID:       principal.ID,
		Class:           req.Class,
		Semester:        req.Semester,
		DurationMinutes: req.DurationMinutes,
		PassPercentage:  req.PassPercentage,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IsActive:        true,
		Batches:         append([]int(nil), req.Batches...),
		Questions:       snapshot,
	}
	if exam.PassPercentage == nil && s.defaultPass > 0 {
		pass := s.defaultPass
		exam.PassPercentage = &pass
	}
	exam.TotalMarks = exam.SumMarks()

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Exam().LockTitle(ctx, tx, title, req.Class, req.Semester); err != nil {
			return err
		}

		exists, err := s.repo.Exam().ExistsByTitle(ctx, tx, title, req.Class, req.Semester)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateExam
		}

		return s.repo.Exam().Create(ctx, tx, exam)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateExam) || repositories.IsDuplicateError(err) {
			s.logger.Warn("Duplicate exam rejected", "title", title, "class", req.Class, "semester", req.Semester)
			return nil, ErrDuplicateExam
		}
		return nil, fmt.Errorf("failed to deploy exam: %w", err)
	}

	s.logger.Info("Exam deployed",
		"exam_id", exam.ID,
		"teacher_id", principal.ID,
		"questions", len(exam.Questions),
		"total_marks", exam.TotalMarks)

	s.publish(ctx, events.NewEvent(events.ExamDeployed, events.ExamDeployedData{
		ExamID:     exam.ID,
		Title:      exam.Title,
		SubjectID:  exam.SubjectID,
		TeacherID:  exam.TeacherID,
		Class:      exam.Class,
		Semester:   exam.Semester,
		Batches:    exam.Batches,
		TotalMarks: exam.TotalMarks,
		StartTime:  exam.StartTime,
		EndTime:    exam.EndTime,
	}))

	return exam, nil
}

func (s *examService) IsDuplicateExam(ctx context.Context, title, class, semester string) (bool, error) {
	exists, err := s.repo.Exam().ExistsByTitle(ctx, s.db, strings.TrimSpace(title), class, semester)
	if err != nil {
		return false, fmt.Errorf("failed to check exam title: %w", err)
	}
	return exists, nil
}

// buildSnapshot resolves the draft's bank questions into independent exam questions
func (s *examService) buildSnapshot(ctx context.Context, principal *models.User, req *DeployExamRequest) ([]models.ExamQuestion, error) {
	ids := make([]string, 0, len(req.Questions))
	seen := make(map[string]bool, len(req.Questions))
	for _, q := range req.Questions {
		if seen[q.QuestionID] {
			return nil, ValidationErrors{{
				Field:   "questions",
				Message: "must not contain the same question twice",
				Value:   q.QuestionID,
				Rule:    "unique",
			}}
		}
		seen[q.QuestionID] = true
		ids = append(ids, q.QuestionID)
	}

	bank, err := s.repo.Question().GetByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	byID := make(map[string]*models.Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}

	snapshot := make([]models.ExamQuestion, 0, len(req.Questions))
	for i, item := range req.Questions {
		source, ok := byID[item.QuestionID]
		if !ok || (!principal.IsAdmin() && source.TeacherID != principal.ID) {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, item.QuestionID)
		}
		if source.SubjectID != req.SubjectID {
			return nil, ValidationErrors{{
				Field:   "questions",
				Message: "must belong to the exam subject",
				Value:   item.QuestionID,
				Rule:    "subject",
			}}
		}

		var eq models.ExamQuestion
		if err := copier.CopyWithOption(&eq, source, copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("failed to copy question %s: %w", source.ID, err)
		}
		eq.ID = ""
		eq.SourceQuestionID = source.ID
		eq.Position = i + 1
		if item.Marks != nil {
			eq.Marks = *item.Marks
		}
		snapshot = append(snapshot, eq)
	}

	return snapshot, nil
}

func examInputs(snapshot []models.ExamQuestion) []validator.ExamQuestionInput {
	inputs := make([]validator.ExamQuestionInput, len(snapshot))
	for i, q := range snapshot {
		inputs[i] = validator.ExamQuestionInput{Difficulty: q.Difficulty, Marks: q.Marks}
	}
	return inputs
}

// ===== READS =====

func (s *examService) GetExam(ctx context.Context, principal *models.User, id string) (*models.Exam, error) {
	if principal == nil {
		return nil, NewPermissionError("", "view", "exam "+id, "unauthenticated")
	}

	if s.policy.Can(principal, CapDeployExams) {
		exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, s.db, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrExamNotFound
			}
			return nil, fmt.Errorf("failed to get exam: %w", err)
		}
		if err := s.policy.CanManageExam(principal, exam); err != nil {
			return nil, err
		}
		return exam, nil
	}

	if err := s.policy.Require(principal, CapTakeExams); err != nil {
		return nil, err
	}
	exam, err := s.eligibility.eligibleExam(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	// students get the questions through their session, never with the answer key
	exam.Questions = nil
	return exam, nil
}

func (s *examService) ListTeacherExams(ctx context.Context, principal *models.User, filters repositories.ExamFilters) (*ExamListResponse, error) {
	if err := s.policy.Require(principal, CapDeployExams); err != nil {
		return nil, err
	}

	exams, total, err := s.repo.Exam().ListByTeacher(ctx, s.db, ownerScope(principal), filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	size := filters.Limit
	if size <= 0 {
		size = 20
	}
	return &ExamListResponse{
		Exams: exams,
		Total: total,
		Page:  filters.Offset/size + 1,
		Size:  size,
	}, nil
}

func (s *examService) SetExamActive(ctx context.Context, principal *models.User, id string, active bool) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if err := s.policy.CanManageExam(principal, exam); err != nil {
		return nil, err
	}
	if exam.IsActive == active {
		return exam, nil
	}

	if err := s.repo.Exam().UpdateActive(ctx, s.db, id, active); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to update exam status: %w", err)
	}
	exam.IsActive = active

	s.logger.Info("Exam status changed", "exam_id", id, "is_active", active, "user_id", principal.ID)
	s.publish(ctx, events.NewEvent(events.ExamStatusChanged, events.ExamStatusChangedData{
		ExamID:   id,
		IsActive: active,
		ActorID:  principal.ID,
	}))

	return exam, nil
}

func (s *examService) GetExamsForStudent(ctx context.Context, principal *models.User) (*models.StudentExamList, error) {
	if err := s.policy.Require(principal, CapTakeExams); err != nil {
		return nil, err
	}

	list := &models.StudentExamList{
		ActiveExams:   []*models.ExamSummary{},
		AttendedExams: []*models.ExamSummary{},
	}

	cohort, err := s.repo.Exam().ListActiveForCohort(ctx, s.db, principal.Class, principal.Semester)
	if err != nil {
		return nil, fmt.Errorf("failed to list cohort exams: %w", err)
	}
	if len(cohort) == 0 {
		return list, nil
	}

	batches, err := s.eligibility.batchesBySubject(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	var eligible []*models.Exam
	var ids []string
	for _, exam := range cohort {
		if isEligible(exam, principal, batches) {
			eligible = append(eligible, exam)
			ids = append(ids, exam.ID)
		}
	}
	if len(eligible) == 0 {
		return list, nil
	}

	submitted, err := s.repo.Submission().SubmittedExamIDs(ctx, s.db, principal.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	now := s.now()
	for _, exam := range eligible {
		summary := models.NewExamSummary(exam)
		summary.Submitted = submitted[exam.ID]
		switch {
		case summary.Submitted || exam.HasEndedAt(now):
			list.AttendedExams = append(list.AttendedExams, summary)
		case exam.IsOpenAt(now):
			list.ActiveExams = append(list.ActiveExams, summary)
		}
	}

	return list, nil
}

func (s *examService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish exam event", "error", err, "event_type", event.Type)
	}
}
