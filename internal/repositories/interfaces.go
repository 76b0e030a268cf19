package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	TeacherID  *string                 `json:"teacher_id"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
}

type ExamFilters struct {
	SubjectID *string    `json:"subject_id"`
	Class     *string    `json:"class"`
	Semester  *string    `json:"semester"`
	IsActive  *bool      `json:"is_active"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "title", "start_time", "end_time"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

// BatchScope selects assignments of one subject; empty TeacherID or Class widen the scope
type BatchScope struct {
	TeacherID string `json:"teacher_id"`
	SubjectID string `json:"subject_id"`
	Class     string `json:"class"`
}

// QuestionRepository stores the question bank
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	ListBySubject(ctx context.Context, tx *gorm.DB, subjectID string, filters QuestionFilters) ([]*models.Question, error)
}

// BatchAssignmentRepository keeps one batch per (student, subject)
type BatchAssignmentRepository interface {
	// Upsert replaces any assignment already held for the same student and subject
	Upsert(ctx context.Context, tx *gorm.DB, assignment *models.BatchAssignment) error
	Delete(ctx context.Context, tx *gorm.DB, studentID, subjectID string) error
	GetByStudentSubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) (*models.BatchAssignment, error)
	ListByScope(ctx context.Context, tx *gorm.DB, scope BatchScope) ([]*models.BatchAssignment, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.BatchAssignment, error)
	ListBySubjectClass(ctx context.Context, tx *gorm.DB, subjectID, class string) ([]*models.BatchAssignment, error)
}

// ExamRepository stores deployed exams together with their question snapshot
type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error)
	ExistsByTitle(ctx context.Context, tx *gorm.DB, title, class, semester string) (bool, error)
	// LockTitle holds a transaction-scoped lock on (title, class, semester); tx must be a transaction
	LockTitle(ctx context.Context, tx *gorm.DB, title, class, semester string) error
	ListActiveForCohort(ctx context.Context, tx *gorm.DB, class, semester string) ([]*models.Exam, error)
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters ExamFilters) ([]*models.Exam, int64, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Exam, error)
	UpdateActive(ctx context.Context, tx *gorm.DB, id string, active bool) error
}

// SessionRepository stores in-progress exam sessions
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error
	GetByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (*models.ExamSession, error)
	UpdateAnswer(ctx context.Context, tx *gorm.DB, answer *models.SessionAnswer) error
	// MarkSubmitted closes an in-progress session; it reports false when the session was already closed
	MarkSubmitted(ctx context.Context, tx *gorm.DB, sessionID string, at time.Time) (bool, error)
	ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamSession, error)
}

// SubmissionRepository stores graded submissions, one per (exam, student)
type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (*models.Submission, error)
	ExistsByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (bool, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID string) ([]*models.Submission, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Submission, error)
	SubmittedExamIDs(ctx context.Context, tx *gorm.DB, studentID string, examIDs []string) (map[string]bool, error)
	CountByExam(ctx context.Context, tx *gorm.DB, examID string) (int64, error)
}
