package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory repositories.Repository used by the service tests.
// Reads return copies so services cannot mutate stored state by accident.
type fakeRepo struct {
	mu          sync.Mutex
	questions   map[string]*models.Question
	batches     map[string]*models.BatchAssignment
	exams       map[string]*models.Exam
	sessions    map[string]*models.ExamSession
	submissions map[string]*models.Submission
	users       map[string]*models.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		questions:   map[string]*models.Question{},
		batches:     map[string]*models.BatchAssignment{},
		exams:       map[string]*models.Exam{},
		sessions:    map[string]*models.ExamSession{},
		submissions: map[string]*models.Submission{},
		users:       map[string]*models.User{},
	}
}

func pairKey(a, b string) string { return a + "|" + b }

func notFound(what string) error {
	return fmt.Errorf("failed to get %s: %w", what, gorm.ErrRecordNotFound)
}

func duplicate(what string) error {
	return fmt.Errorf("failed to create %s: %w", what, gorm.ErrDuplicatedKey)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (r *fakeRepo) Question() repositories.QuestionRepository               { return (*fakeQuestions)(r) }
func (r *fakeRepo) BatchAssignment() repositories.BatchAssignmentRepository { return (*fakeBatches)(r) }
func (r *fakeRepo) Exam() repositories.ExamRepository                       { return (*fakeExams)(r) }
func (r *fakeRepo) Session() repositories.SessionRepository                 { return (*fakeSessions)(r) }
func (r *fakeRepo) Submission() repositories.SubmissionRepository           { return (*fakeSubmissions)(r) }
func (r *fakeRepo) User() repositories.UserRepository                       { return (*fakeUsers)(r) }
func (r *fakeRepo) Dashboard() repositories.DashboardRepository             { return (*fakeDashboard)(r) }

func (r *fakeRepo) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close() error                   { return nil }

// ===== QUESTIONS =====

type fakeQuestions fakeRepo

func cloneQuestion(q *models.Question) *models.Question {
	c := *q
	c.Options = append([]string(nil), q.Options...)
	return &c
}

func (f *fakeQuestions) Create(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = time.Now()
	f.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (f *fakeQuestions) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, notFound("question")
	}
	return cloneQuestion(q), nil
}

func (f *fakeQuestions) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Question
	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			out = append(out, cloneQuestion(q))
		}
	}
	return out, nil
}

func (f *fakeQuestions) Update(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.questions[q.ID]; !ok {
		return notFound("question")
	}
	f.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (f *fakeQuestions) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.questions[id]; !ok {
		return notFound("question")
	}
	delete(f.questions, id)
	return nil
}

func (f *fakeQuestions) ListBySubject(ctx context.Context, tx *gorm.DB, subjectID string, filters repositories.QuestionFilters) ([]*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Question{}
	for _, q := range f.questions {
		if q.SubjectID != subjectID {
			continue
		}
		if filters.TeacherID != nil && q.TeacherID != *filters.TeacherID {
			continue
		}
		if filters.Difficulty != nil && q.Difficulty != *filters.Difficulty {
			continue
		}
		out = append(out, cloneQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ===== BATCHES =====

type fakeBatches fakeRepo

func (f *fakeBatches) Upsert(ctx context.Context, tx *gorm.DB, a *models.BatchAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	c := *a
	f.batches[pairKey(a.StudentID, a.SubjectID)] = &c
	return nil
}

func (f *fakeBatches) Delete(ctx context.Context, tx *gorm.DB, studentID, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(studentID, subjectID)
	if _, ok := f.batches[key]; !ok {
		return notFound("batch assignment")
	}
	delete(f.batches, key)
	return nil
}

func (f *fakeBatches) GetByStudentSubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) (*models.BatchAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.batches[pairKey(studentID, subjectID)]
	if !ok {
		return nil, notFound("batch assignment")
	}
	c := *a
	return &c, nil
}

func (f *fakeBatches) filter(keep func(*models.BatchAssignment) bool) []*models.BatchAssignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.BatchAssignment{}
	for _, a := range f.batches {
		if keep(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

func (f *fakeBatches) ListByScope(ctx context.Context, tx *gorm.DB, scope repositories.BatchScope) ([]*models.BatchAssignment, error) {
	return f.filter(func(a *models.BatchAssignment) bool {
		return a.SubjectID == scope.SubjectID &&
			(scope.TeacherID == "" || a.TeacherID == scope.TeacherID) &&
			(scope.Class == "" || a.Class == scope.Class)
	}), nil
}

func (f *fakeBatches) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.BatchAssignment, error) {
	return f.filter(func(a *models.BatchAssignment) bool { return a.StudentID == studentID }), nil
}

func (f *fakeBatches) ListBySubjectClass(ctx context.Context, tx *gorm.DB, subjectID, class string) ([]*models.BatchAssignment, error) {
	return f.filter(func(a *models.BatchAssignment) bool { return a.SubjectID == subjectID && a.Class == class }), nil
}

// ===== EXAMS =====

type fakeExams fakeRepo

func cloneExam(e *models.Exam, withQuestions bool) *models.Exam {
	c := *e
	c.Batches = append([]int(nil), e.Batches...)
	c.Questions = nil
	if withQuestions {
		for _, q := range e.Questions {
			q.Options = append([]string(nil), q.Options...)
			c.Questions = append(c.Questions, q)
		}
	}
	return &c
}

func (f *fakeExams) Create(ctx context.Context, tx *gorm.DB, e *models.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.exams {
		if strings.EqualFold(existing.Title, e.Title) && existing.Class == e.Class && existing.Semester == e.Semester {
			return duplicate("exam")
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for i := range e.Questions {
		if e.Questions[i].ID == "" {
			e.Questions[i].ID = uuid.NewString()
		}
		e.Questions[i].ExamID = e.ID
	}
	e.CreatedAt = time.Now()
	f.exams[e.ID] = cloneExam(e, true)
	return nil
}

func (f *fakeExams) get(id string, withQuestions bool) (*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[id]
	if !ok {
		return nil, notFound("exam")
	}
	return cloneExam(e, withQuestions), nil
}

func (f *fakeExams) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error) {
	return f.get(id, false)
}

func (f *fakeExams) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error) {
	return f.get(id, true)
}

func (f *fakeExams) ExistsByTitle(ctx context.Context, tx *gorm.DB, title, class, semester string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.exams {
		if strings.EqualFold(e.Title, title) && e.Class == class && e.Semester == semester {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeExams) LockTitle(ctx context.Context, tx *gorm.DB, title, class, semester string) error {
	return nil
}

func (f *fakeExams) ListActiveForCohort(ctx context.Context, tx *gorm.DB, class, semester string) ([]*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Exam{}
	for _, e := range f.exams {
		if e.IsActive && e.Class == class && e.Semester == semester {
			out = append(out, cloneExam(e, true))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeExams) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Exam{}
	for _, e := range f.exams {
		if teacherID == "" || e.TeacherID == teacherID {
			out = append(out, cloneExam(e, false))
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeExams) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Exam{}
	for _, id := range ids {
		if e, ok := f.exams[id]; ok {
			out = append(out, cloneExam(e, false))
		}
	}
	return out, nil
}

func (f *fakeExams) UpdateActive(ctx context.Context, tx *gorm.DB, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[id]
	if !ok {
		return notFound("exam")
	}
	e.IsActive = active
	return nil
}

// ===== SESSIONS =====

type fakeSessions fakeRepo

func cloneSession(s *models.ExamSession) *models.ExamSession {
	c := *s
	c.Answers = append([]models.SessionAnswer(nil), s.Answers...)
	return &c
}

func (f *fakeSessions) Create(ctx context.Context, tx *gorm.DB, s *models.ExamSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(s.ExamID, s.StudentID)
	if _, ok := f.sessions[key]; ok {
		return duplicate("exam session")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	for i := range s.Answers {
		if s.Answers[i].ID == "" {
			s.Answers[i].ID = uuid.NewString()
		}
		s.Answers[i].SessionID = s.ID
	}
	f.sessions[key] = cloneSession(s)
	return nil
}

func (f *fakeSessions) GetByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (*models.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[pairKey(examID, studentID)]
	if !ok {
		return nil, notFound("exam session")
	}
	return cloneSession(s), nil
}

func (f *fakeSessions) UpdateAnswer(ctx context.Context, tx *gorm.DB, answer *models.SessionAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		for i := range s.Answers {
			if s.Answers[i].ID == answer.ID {
				s.Answers[i].SelectedOption = answer.SelectedOption
				s.Answers[i].Status = answer.Status
				return nil
			}
		}
	}
	return notFound("session answer")
}

func (f *fakeSessions) MarkSubmitted(ctx context.Context, tx *gorm.DB, sessionID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == sessionID {
			if s.Status != models.SessionInProgress {
				return false, nil
			}
			s.Status = models.SessionSubmitted
			s.SubmittedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessions) ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.ExamSession{}
	for _, s := range f.sessions {
		e, ok := f.exams[s.ExamID]
		if ok && s.Status == models.SessionInProgress && e.EndTime.Before(now) {
			out = append(out, cloneSession(s))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ===== SUBMISSIONS =====

type fakeSubmissions fakeRepo

func (f *fakeSubmissions) Create(ctx context.Context, tx *gorm.DB, s *models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(s.ExamID, s.StudentID)
	if _, ok := f.submissions[key]; ok {
		return duplicate("submission")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	c := *s
	f.submissions[key] = &c
	return nil
}

func (f *fakeSubmissions) GetByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[pairKey(examID, studentID)]
	if !ok {
		return nil, notFound("submission")
	}
	c := *s
	return &c, nil
}

func (f *fakeSubmissions) ExistsByExamStudent(ctx context.Context, tx *gorm.DB, examID, studentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.submissions[pairKey(examID, studentID)]
	return ok, nil
}

func (f *fakeSubmissions) list(keep func(*models.Submission) bool) []*models.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Submission{}
	for _, s := range f.submissions {
		if keep(s) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

func (f *fakeSubmissions) ListByExam(ctx context.Context, tx *gorm.DB, examID string) ([]*models.Submission, error) {
	return f.list(func(s *models.Submission) bool { return s.ExamID == examID }), nil
}

func (f *fakeSubmissions) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Submission, error) {
	return f.list(func(s *models.Submission) bool { return s.StudentID == studentID }), nil
}

func (f *fakeSubmissions) SubmittedExamIDs(ctx context.Context, tx *gorm.DB, studentID string, examIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range examIDs {
		if ok, _ := f.ExistsByExamStudent(ctx, tx, id, studentID); ok {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeSubmissions) CountByExam(ctx context.Context, tx *gorm.DB, examID string) (int64, error) {
	subs, _ := f.ListByExam(ctx, tx, examID)
	return int64(len(subs)), nil
}

// ===== USERS =====

type fakeUsers fakeRepo

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound("user")
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := f.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ListStudents(ctx context.Context, filters repositories.RosterFilters) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.User{}
	for _, u := range f.users {
		if u.IsStudent() && u.Class == filters.Class && u.Semester == filters.Semester {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

// ===== DASHBOARD =====

type fakeDashboard fakeRepo

func (f *fakeDashboard) CountQuestions(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, q := range f.questions {
		if teacherID == "" || q.TeacherID == teacherID {
			n++
		}
	}
	return n, nil
}

func (f *fakeDashboard) CountExams(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	_, total, err := (*fakeExams)(f).ListByTeacher(ctx, tx, teacherID, repositories.ExamFilters{})
	return total, err
}

func (f *fakeDashboard) teacherSubmissions(teacherID string) []*models.Submission {
	f.mu.Lock()
	owned := map[string]bool{}
	for _, e := range f.exams {
		if teacherID == "" || e.TeacherID == teacherID {
			owned[e.ID] = true
		}
	}
	f.mu.Unlock()
	return (*fakeSubmissions)(f).list(func(s *models.Submission) bool { return owned[s.ExamID] })
}

func (f *fakeDashboard) CountSubmissions(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	return int64(len(f.teacherSubmissions(teacherID))), nil
}

func (f *fakeDashboard) GetPassRate(ctx context.Context, tx *gorm.DB, teacherID string) (float64, error) {
	subs := f.teacherSubmissions(teacherID)
	if len(subs) == 0 {
		return 0, nil
	}
	passed := 0
	for _, s := range subs {
		if s.Passed() {
			passed++
		}
	}
	return 100 * float64(passed) / float64(len(subs)), nil
}

func (f *fakeDashboard) GetAveragePercentage(ctx context.Context, tx *gorm.DB, teacherID string) (float64, error) {
	subs := f.teacherSubmissions(teacherID)
	if len(subs) == 0 {
		return 0, nil
	}
	total := 0.0
	for _, s := range subs {
		total += s.Percentage
	}
	return total / float64(len(subs)), nil
}

func (f *fakeDashboard) GetRecentSubmissions(ctx context.Context, tx *gorm.DB, teacherID string, limit int) ([]repositories.RecentSubmissionData, error) {
	var out []repositories.RecentSubmissionData
	for _, s := range f.teacherSubmissions(teacherID) {
		out = append(out, repositories.RecentSubmissionData{
			SubmissionID: s.ID,
			ExamID:       s.ExamID,
			StudentID:    s.StudentID,
			StudentName:  s.StudentName,
			Percentage:   s.Percentage,
			Status:       string(s.Status),
			SubmittedAt:  s.SubmittedAt,
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDashboard) GetDifficultyDistribution(ctx context.Context, tx *gorm.DB, teacherID string) ([]repositories.DifficultyDistributionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int64{}
	for _, q := range f.questions {
		if teacherID == "" || q.TeacherID == teacherID {
			counts[string(q.Difficulty)]++
		}
	}
	var out []repositories.DifficultyDistributionData
	for _, d := range []string{"easy", "medium", "hard"} {
		if counts[d] > 0 {
			out = append(out, repositories.DifficultyDistributionData{Difficulty: d, Count: counts[d]})
		}
	}
	return out, nil
}
