package services

import (
	"context"

	"github.com/SAP-F-2025/exam-service/internal/generation"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ===== REQUEST/RESPONSE TYPES =====

type CreateQuestionRequest = validator.CreateQuestionRequest
type UpdateQuestionRequest = validator.UpdateQuestionRequest
type AssignBatchRequest = validator.AssignBatchRequest
type DeployExamRequest = validator.DeployExamRequest
type ExamQuestionRequest = validator.ExamQuestionRequest
type GenerateQuestionsRequest = validator.GenerateQuestionsRequest

type ExamListResponse struct {
	Exams []*models.Exam `json:"exams"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// GenerateQuestionsResponse reports what the provider produced and what was kept.
// Unsaved holds the drafts left unstored when the bank write failed part way.
type GenerateQuestionsResponse struct {
	Provider   string                     `json:"provider"`
	Requested  int                        `json:"requested"`
	Questions  []*models.Question         `json:"questions"`
	Drafts     []generation.DraftQuestion `json:"drafts,omitempty"`
	Rejected   []RejectedDraft            `json:"rejected"`
	Unsaved    []generation.DraftQuestion `json:"unsaved,omitempty"`
	StoreError string                     `json:"store_error,omitempty"`
}

type RejectedDraft struct {
	Index  int                      `json:"index"`
	Draft  generation.DraftQuestion `json:"draft"`
	Errors ValidationErrors         `json:"errors"`
}

// ===== SERVICE INTERFACES =====

type QuestionBankService interface {
	AddQuestion(ctx context.Context, principal *models.User, req *CreateQuestionRequest) (*models.Question, error)
	UpdateQuestion(ctx context.Context, principal *models.User, id string, req *UpdateQuestionRequest) (*models.Question, error)
	DeleteQuestion(ctx context.Context, principal *models.User, id string) error
	GetQuestion(ctx context.Context, principal *models.User, id string) (*models.Question, error)
	ListBySubject(ctx context.Context, principal *models.User, subjectID string, filters repositories.QuestionFilters) ([]*models.Question, error)
}

type BatchService interface {
	// AssignBatch upserts the student's batch for the subject; batch 0 removes it and returns nil
	AssignBatch(ctx context.Context, principal *models.User, req *AssignBatchRequest) (*models.BatchAssignment, error)
	RemoveBatchAssignment(ctx context.Context, principal *models.User, studentID, subjectID string) error
	GetBatchAssignments(ctx context.Context, principal *models.User, subjectID, class string) ([]*models.BatchAssignment, error)
	GetStudentBatch(ctx context.Context, studentID, subjectID string) (*int, error)
}

type ExamService interface {
	ValidateDraft(ctx context.Context, principal *models.User, req *DeployExamRequest) (*validator.ExamValidationResult, error)
	DeployExam(ctx context.Context, principal *models.User, req *DeployExamRequest) (*models.Exam, error)
	IsDuplicateExam(ctx context.Context, title, class, semester string) (bool, error)
	GetExam(ctx context.Context, principal *models.User, id string) (*models.Exam, error)
	ListTeacherExams(ctx context.Context, principal *models.User, filters repositories.ExamFilters) (*ExamListResponse, error)
	SetExamActive(ctx context.Context, principal *models.User, id string, active bool) (*models.Exam, error)
	GetExamsForStudent(ctx context.Context, principal *models.User) (*models.StudentExamList, error)
}

type SessionService interface {
	StartSession(ctx context.Context, principal *models.User, examID string) (*models.SessionView, error)
	GetSession(ctx context.Context, principal *models.User, examID string) (*models.SessionView, error)
	// SelectAnswer sets the selection; nil clears it
	SelectAnswer(ctx context.Context, principal *models.User, examID, examQuestionID string, option *int) (*models.QuestionView, error)
	FlagQuestion(ctx context.Context, principal *models.User, examID, examQuestionID string, flagged bool) (*models.QuestionView, error)
	Submit(ctx context.Context, principal *models.User, examID string, reason models.SubmitReason) (*models.Submission, error)
	CloseExpiredSessions(ctx context.Context, limit int) (int, error)
}

type ResultService interface {
	GetExamResults(ctx context.Context, principal *models.User, examID string) ([]*models.Submission, error)
	GetStudentResults(ctx context.Context, principal *models.User) ([]*models.StudentResult, error)
	ComputeAnalytics(ctx context.Context, principal *models.User, examID string) (*models.ExamAnalytics, error)
	ExportExamResults(ctx context.Context, principal *models.User, examID string) ([]byte, error)
}

type GenerationService interface {
	Enabled() bool
	GenerateQuestions(ctx context.Context, principal *models.User, req *GenerateQuestionsRequest) (*GenerateQuestionsResponse, error)
}

type DashboardService interface {
	GetTeacherDashboard(ctx context.Context, principal *models.User) (*TeacherDashboard, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	QuestionBank() QuestionBankService
	Batch() BatchService
	Exam() ExamService
	Session() SessionService
	Result() ResultService
	Generation() GenerationService
	Dashboard() DashboardService
	Policy() AccessPolicy

	// RunSessionSweeper blocks, closing expired sessions until ctx is cancelled
	RunSessionSweeper(ctx context.Context)

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
