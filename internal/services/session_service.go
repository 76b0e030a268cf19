package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type sessionService struct {
	repo        repositories.Repository
	db          *gorm.DB
	logger      *slog.Logger
	policy      AccessPolicy
	publisher   events.EventPublisher
	cache       *cache.CacheManager
	eligibility eligibility
	now         func() time.Time
}

func NewSessionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, policy AccessPolicy, publisher events.EventPublisher, cacheManager *cache.CacheManager) SessionService {
	return &sessionService{
		repo:        repo,
		db:          db,
		logger:      logger,
		policy:      policy,
		publisher:   publisher,
		cache:       cacheManager,
		eligibility: eligibility{repo: repo, db: db},
		now:         time.Now,
	}
}

// ===== CORE SESSION OPERATIONS =====

func (s *sessionService) StartSession(ctx context.Context, principal *models.User, examID string) (*models.SessionView, error) {
	if err := s.policy.Require(principal, CapTakeExams); err != nil {
		return nil, err
	}

	exam, err := s.eligibility.eligibleExam(ctx, principal, examID)
	if err != nil {
		return nil, err
	}

	submitted, err := s.repo.Submission().ExistsByExamStudent(ctx, s.db, examID, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check submission: %w", err)
	}
	if submitted {
		return nil, ErrAlreadySubmitted
	}

	now := s.now()
	if now.Before(exam.StartTime) {
		return nil, ErrExamNotStarted
	}
	if exam.HasEndedAt(now) {
		return nil, ErrSessionClosed
	}

	existing, err := s.repo.Session().GetByExamStudent(ctx, s.db, examID, principal.ID)
	if err == nil {
		if existing.Status == models.SessionSubmitted {
			return nil, ErrAlreadySubmitted
		}
		s.logger.Info("Resuming exam session", "session_id", existing.ID, "exam_id", examID, "student_id", principal.ID)
		return buildSessionView(exam, existing, now), nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	startedAt := now
	session := &models.ExamSession{
		ExamID:    examID,
		StudentID: principal.ID,
		Status:    models.SessionInProgress,
		StartedAt: &startedAt,
		Answers:   make([]models.SessionAnswer, 0, len(exam.Questions)),
	}
	for _, q := range exam.Questions {
		session.Answers = append(session.Answers, models.SessionAnswer{
			ExamQuestionID: q.ID,
			Position:       q.Position,
			Status:         models.AnswerUnanswered,
		})
	}

	if err := s.repo.Session().Create(ctx, s.db, session); err != nil {
		if !repositories.IsDuplicateError(err) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		// a concurrent start won the insert; use its session
		session, err = s.repo.Session().GetByExamStudent(ctx, s.db, examID, principal.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
	}

	s.logger.Info("Exam session started",
		"session_id", session.ID,
		"exam_id", examID,
		"student_id", principal.ID)

	return buildSessionView(exam, session, now), nil
}

func (s *sessionService) GetSession(ctx context.Context, principal *models.User, examID string) (*models.SessionView, error) {
	exam, session, err := s.openSession(ctx, principal, examID)
	if err != nil {
		return nil, err
	}
	return buildSessionView(exam, session, s.now()), nil
}

func (s *sessionService) SelectAnswer(ctx context.Context, principal *models.User, examID, examQuestionID string, option *int) (*models.QuestionView, error) {
	if option != nil && (*option < 0 || *option >= models.OptionsPerQuestion) {
		return nil, ValidationErrors{{
			Field:   "selected_option",
			Message: fmt.Sprintf("must be between 0 and %d", models.OptionsPerQuestion-1),
			Value:   *option,
			Rule:    "range",
		}}
	}

	exam, session, err := s.openSession(ctx, principal, examID)
	if err != nil {
		return nil, err
	}

	answer, err := findAnswer(session, examQuestionID)
	if err != nil {
		return nil, err
	}

	answer.SelectedOption = option
	if answer.Status != models.AnswerFlagged {
		answer.Status = answeredStatus(option)
	}

	if err := s.repo.Session().UpdateAnswer(ctx, s.db, answer); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	return questionView(exam, answer), nil
}

func (s *sessionService) FlagQuestion(ctx context.Context, principal *models.User, examID, examQuestionID string, flagged bool) (*models.QuestionView, error) {
	exam, session, err := s.openSession(ctx, principal, examID)
	if err != nil {
		return nil, err
	}

	answer, err := findAnswer(session, examQuestionID)
	if err != nil {
		return nil, err
	}

	if flagged {
		answer.Status = models.AnswerFlagged
	} else {
		answer.Status = answeredStatus(answer.SelectedOption)
	}

	if err := s.repo.Session().UpdateAnswer(ctx, s.db, answer); err != nil {
		return nil, fmt.Errorf("failed to flag question: %w", err)
	}

	return questionView(exam, answer), nil
}

func (s *sessionService) Submit(ctx context.Context, principal *models.User, examID string, reason models.SubmitReason) (*models.Submission, error) {
	if err := s.policy.Require(principal, CapTakeExams); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = models.SubmitManual
	}

	exam, err := s.eligibility.eligibleExam(ctx, principal, examID)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.Session().GetByExamStudent(ctx, s.db, examID, principal.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.Status == models.SessionSubmitted {
		return nil, ErrAlreadySubmitted
	}

	if exam.HasEndedAt(s.now()) {
		reason = models.SubmitTimeout
	}

	return s.submit(ctx, exam, session, principal.FullName, reason)
}

// CloseExpiredSessions submits, with reason timeout, sessions left open after their exam ended
func (s *sessionService) CloseExpiredSessions(ctx context.Context, limit int) (int, error) {
	sessions, err := s.repo.Session().ListExpired(ctx, s.db, s.now(), limit)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, session := range sessions {
		exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, s.db, session.ExamID)
		if err != nil {
			s.logger.Error("Failed to load exam for expired session", "error", err, "session_id", session.ID)
			continue
		}

		name := ""
		if user, err := s.repo.User().GetByID(ctx, session.StudentID); err == nil {
			name = user.FullName
		}

		if _, err := s.submit(ctx, exam, session, name, models.SubmitTimeout); err != nil {
			if !errors.Is(err, ErrAlreadySubmitted) {
				s.logger.Error("Failed to close expired session", "error", err, "session_id", session.ID)
			}
			continue
		}
		closed++
	}

	if closed > 0 {
		s.logger.Info("Closed expired exam sessions", "count", closed)
	}
	return closed, nil
}

// ===== HELPERS =====

// openSession loads an editable session. Once the window has closed the
// session is submitted with reason timeout and ErrSessionClosed is returned.
func (s *sessionService) openSession(ctx context.Context, principal *models.User, examID string) (*models.Exam, *models.ExamSession, error) {
	if err := s.policy.Require(principal, CapTakeExams); err != nil {
		return nil, nil, err
	}

	exam, err := s.eligibility.eligibleExam(ctx, principal, examID)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.repo.Session().GetByExamStudent(ctx, s.db, examID, principal.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.Status == models.SessionSubmitted {
		return nil, nil, ErrSessionClosed
	}

	if exam.HasEndedAt(s.now()) {
		if _, err := s.submit(ctx, exam, session, principal.FullName, models.SubmitTimeout); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
			return nil, nil, err
		}
		return nil, nil, ErrSessionClosed
	}

	return exam, session, nil
}

// submit grades the session and stores the submission and the closed session in one transaction
func (s *sessionService) submit(ctx context.Context, exam *models.Exam, session *models.ExamSession, studentName string, reason models.SubmitReason) (*models.Submission, error) {
	now := s.now()

	submission := GradeAnswers(exam, session.Selections())
	submission.StudentID = session.StudentID
	submission.StudentName = studentName
	submission.SubmitReason = reason
	submission.SubmittedAt = now

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		closed, err := s.repo.Session().MarkSubmitted(ctx, tx, session.ID, now)
		if err != nil {
			return err
		}
		if !closed {
			return ErrAlreadySubmitted
		}
		return s.repo.Submission().Create(ctx, tx, submission)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySubmitted) || repositories.IsDuplicateError(err) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to submit exam: %w", err)
	}

	s.logger.Info("Exam submitted",
		"submission_id", submission.ID,
		"exam_id", exam.ID,
		"student_id", session.StudentID,
		"percentage", submission.Percentage,
		"status", submission.Status,
		"reason", reason)

	if s.cache != nil {
		cache.SafeDelete(ctx, s.cache.Stats, cache.ExamAnalyticsKey(exam.ID))
	}

	event := events.NewEvent(events.SubmissionCreated, events.SubmissionCreatedData{
		SubmissionID:  submission.ID,
		ExamID:        exam.ID,
		StudentID:     session.StudentID,
		MarksObtained: submission.MarksObtained,
		TotalMarks:    submission.TotalMarks,
		Percentage:    submission.Percentage,
		Status:        string(submission.Status),
		Reason:        string(reason),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish submission event", "error", err, "submission_id", submission.ID)
	}

	return submission, nil
}

func findAnswer(session *models.ExamSession, examQuestionID string) (*models.SessionAnswer, error) {
	for i := range session.Answers {
		if session.Answers[i].ExamQuestionID == examQuestionID {
			return &session.Answers[i], nil
		}
	}
	return nil, ErrQuestionNotFound
}

func answeredStatus(selected *int) models.AnswerStatus {
	if selected == nil {
		return models.AnswerUnanswered
	}
	return models.AnswerAnswered
}

func questionView(exam *models.Exam, answer *models.SessionAnswer) *models.QuestionView {
	view := &models.QuestionView{
		ID:             answer.ExamQuestionID,
		Position:       answer.Position,
		SelectedOption: answer.SelectedOption,
		Status:         answer.Status,
	}
	for _, q := range exam.Questions {
		if q.ID == answer.ExamQuestionID {
			view.Text = q.Text
			view.Options = append([]string(nil), q.Options...)
			view.Difficulty = q.Difficulty
			view.Marks = q.Marks
			break
		}
	}
	return view
}

// buildSessionView never exposes the answer key; remaining time is measured against end_time only
func buildSessionView(exam *models.Exam, session *models.ExamSession, now time.Time) *models.SessionView {
	remaining := int64(exam.EndTime.Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}

	view := &models.SessionView{
		SessionID:        session.ID,
		ExamID:           exam.ID,
		Title:            exam.Title,
		Status:           session.Status,
		StartedAt:        session.StartedAt,
		EndTime:          exam.EndTime,
		RemainingSeconds: remaining,
		TotalMarks:       exam.TotalMarks,
		Questions:        make([]*models.QuestionView, 0, len(session.Answers)),
	}

	for i := range session.Answers {
		answer := &session.Answers[i]
		switch answer.Status {
		case models.AnswerAnswered:
			view.Answered++
		case models.AnswerFlagged:
			view.Flagged++
			if answer.SelectedOption != nil {
				view.Answered++
			}
		}
		view.Questions = append(view.Questions, questionView(exam, answer))
	}
	sort.Slice(view.Questions, func(i, j int) bool {
		return view.Questions[i].Position < view.Questions[j].Position
	})

	return view
}
