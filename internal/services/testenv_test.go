package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

const (
	testSubject  = "math-101"
	testClass    = "10A"
	testSemester = "2025-1"
)

var (
	baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	teacher      = &models.User{ID: "teacher-1", FullName: "Ada Lovelace", Role: models.RoleTeacher}
	otherTeacher = &models.User{ID: "teacher-2", FullName: "Alan Turing", Role: models.RoleTeacher}
	admin        = &models.User{ID: "admin-1", FullName: "Root", Role: models.RoleAdmin}
	proctor      = &models.User{ID: "proctor-1", FullName: "Grace Hopper", Role: models.RoleProctor}
)

// bankAnswers is the answer key of the questions created by seedBank, by position
var bankAnswers = []int{0, 1, 2, 3, 0}

func newStudent(id, name string) *models.User {
	return &models.User{ID: id, FullName: name, Role: models.RoleStudent, Class: testClass, Semester: testSemester}
}

func intPtr(v int) *int { return &v }

type testEnv struct {
	repo      *fakeRepo
	publisher *events.MockEventPublisher
	now       time.Time

	questions *questionBankService
	batches   *batchService
	exams     *examService
	sessions  *sessionService
	results   *resultService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeRepo()
	logger := discardLogger()
	v := validator.New()
	policy := NewAccessPolicy()
	cm := cache.NewCacheManager(nil)

	env := &testEnv{
		repo:      repo,
		publisher: events.NewMockEventPublisher(logger),
		now:       baseTime,
	}
	clock := func() time.Time { return env.now }

	env.questions = NewQuestionBankService(repo, nil, logger, v, policy).(*questionBankService)
	env.batches = NewBatchService(repo, nil, logger, v, policy, env.publisher).(*batchService)
	env.exams = NewExamService(repo, nil, logger, v, policy, env.publisher, validator.DefaultExamRules(), 0).(*examService)
	env.sessions = NewSessionService(repo, nil, logger, policy, env.publisher, cm).(*sessionService)
	env.results = NewResultService(repo, nil, logger, policy, cm).(*resultService)

	env.exams.now = clock
	env.sessions.now = clock
	env.results.now = clock
	return env
}

// seedBank adds five 2-mark questions covering every difficulty and returns their ids
func (e *testEnv) seedBank(t *testing.T, owner *models.User) []string {
	t.Helper()

	difficulties := []models.DifficultyLevel{
		models.DifficultyEasy, models.DifficultyEasy, models.DifficultyMedium, models.DifficultyMedium, models.DifficultyHard,
	}
	ids := make([]string, 0, len(difficulties))
	for i, d := range difficulties {
		q, err := e.questions.AddQuestion(context.Background(), owner, &CreateQuestionRequest{
			SubjectID:     testSubject,
			Text:          "Question " + string(rune('A'+i)),
			Options:       []string{"w", "x", "y", "z"},
			CorrectAnswer: bankAnswers[i],
			Difficulty:    d,
			Marks:         2,
		})
		if err != nil {
			t.Fatalf("AddQuestion() error = %v", err)
		}
		ids = append(ids, q.ID)
	}
	return ids
}

// deployRequest opens one hour after baseTime and closes two hours later
func deployRequest(title string, questionIDs []string) *DeployExamRequest {
	req := &DeployExamRequest{
		Title:           title,
		SubjectID:       testSubject,
		Class:           testClass,
		Semester:        testSemester,
		DurationMinutes: 60,
		StartTime:       baseTime.Add(time.Hour),
		EndTime:         baseTime.Add(3 * time.Hour),
		Batches:         []int{1, 2},
	}
	for _, id := range questionIDs {
		req.Questions = append(req.Questions, ExamQuestionRequest{QuestionID: id})
	}
	return req
}

func (e *testEnv) deployExam(t *testing.T, title string) *models.Exam {
	t.Helper()
	exam, err := e.exams.DeployExam(context.Background(), teacher, deployRequest(title, e.seedBank(t, teacher)))
	if err != nil {
		t.Fatalf("DeployExam() error = %v", err)
	}
	return exam
}

func (e *testEnv) assign(t *testing.T, student *models.User, batch int) {
	t.Helper()
	e.repo.users[student.ID] = student
	_, err := e.batches.AssignBatch(context.Background(), teacher, &AssignBatchRequest{
		SubjectID:   testSubject,
		StudentID:   student.ID,
		Class:       student.Class,
		BatchNumber: batch,
	})
	if err != nil {
		t.Fatalf("AssignBatch() error = %v", err)
	}
}

// answerAll starts a session and selects option(position) for every question
func (e *testEnv) answerAll(t *testing.T, student *models.User, examID string, option func(position int) *int) {
	t.Helper()
	ctx := context.Background()

	view, err := e.sessions.StartSession(ctx, student, examID)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	for _, q := range view.Questions {
		if _, err := e.sessions.SelectAnswer(ctx, student, examID, q.ID, option(q.Position)); err != nil {
			t.Fatalf("SelectAnswer() error = %v", err)
		}
	}
}

func correctOption(position int) *int { return intPtr(bankAnswers[position-1]) }

func noOption(int) *int { return nil }
