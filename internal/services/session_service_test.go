package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

func TestSession_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	student := newStudent("s1", "Bea")
	env.assign(t, student, 1)

	env.now = exam.StartTime.Add(10 * time.Minute)
	view, err := env.sessions.StartSession(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if len(view.Questions) != 5 || view.Answered != 0 {
		t.Fatalf("view = %d questions %d answered, want 5 and 0", len(view.Questions), view.Answered)
	}
	if view.RemainingSeconds != int64(110*60) {
		t.Errorf("RemainingSeconds = %d, want %d", view.RemainingSeconds, 110*60)
	}

	q := view.Questions
	selections := []struct {
		id     string
		option int
	}{
		{q[0].ID, bankAnswers[0]},
		{q[1].ID, bankAnswers[1]},
		{q[2].ID, (bankAnswers[2] + 1) % 4},
	}
	for _, s := range selections {
		got, err := env.sessions.SelectAnswer(ctx, student, exam.ID, s.id, intPtr(s.option))
		if err != nil {
			t.Fatalf("SelectAnswer() error = %v", err)
		}
		if got.Status != models.AnswerAnswered || *got.SelectedOption != s.option {
			t.Errorf("SelectAnswer() = %+v", got)
		}
	}
	if _, err := env.sessions.FlagQuestion(ctx, student, exam.ID, q[3].ID, true); err != nil {
		t.Fatalf("FlagQuestion() error = %v", err)
	}

	view, err = env.sessions.GetSession(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if view.Answered != 3 || view.Flagged != 1 {
		t.Errorf("answered/flagged = %d/%d, want 3/1", view.Answered, view.Flagged)
	}

	submission, err := env.sessions.Submit(ctx, student, exam.ID, "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if submission.CorrectAnswers != 2 || submission.MarksObtained != 4 || submission.TotalMarks != 10 {
		t.Errorf("submission = %d correct %d/%d marks", submission.CorrectAnswers, submission.MarksObtained, submission.TotalMarks)
	}
	if submission.Percentage != 40 || submission.Status != models.SubmissionPass {
		t.Errorf("submission = %v%% %s, want 40%% pass", submission.Percentage, submission.Status)
	}
	if submission.SubmitReason != models.SubmitManual || submission.StudentName != "Bea" {
		t.Errorf("submission reason %q name %q", submission.SubmitReason, submission.StudentName)
	}

	if _, err := env.sessions.Submit(ctx, student, exam.ID, ""); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second Submit() error = %v, want ErrAlreadySubmitted", err)
	}
	if _, err := env.sessions.GetSession(ctx, student, exam.ID); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("GetSession() after submit error = %v, want ErrSessionClosed", err)
	}
	if _, err := env.sessions.SelectAnswer(ctx, student, exam.ID, q[4].ID, intPtr(0)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SelectAnswer() after submit error = %v, want ErrSessionClosed", err)
	}
	if _, err := env.sessions.StartSession(ctx, student, exam.ID); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("StartSession() after submit error = %v, want ErrAlreadySubmitted", err)
	}

	if n := len(env.publisher.EventsOfType(events.SubmissionCreated)); n != 1 {
		t.Errorf("SubmissionCreated events = %d, want 1", n)
	}
}

func TestStartSession_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		principal *models.User
		at        func(exam *models.Exam) time.Time
		wantErr   error
		wantPerm  bool
	}{
		{
			name:      "before start",
			principal: newStudent("s1", "Bea"),
			at:        func(e *models.Exam) time.Time { return e.StartTime.Add(-time.Second) },
			wantErr:   ErrExamNotStarted,
		},
		{
			name:      "after end",
			principal: newStudent("s1", "Bea"),
			at:        func(e *models.Exam) time.Time { return e.EndTime.Add(time.Second) },
			wantErr:   ErrSessionClosed,
		},
		{
			name:      "ineligible student",
			principal: newStudent("s9", "Zed"),
			at:        func(e *models.Exam) time.Time { return e.StartTime },
			wantErr:   ErrExamNotFound,
		},
		{
			name:      "teacher cannot take exams",
			principal: teacher,
			at:        func(e *models.Exam) time.Time { return e.StartTime },
			wantPerm:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			exam := env.deployExam(t, "Midterm")
			env.assign(t, newStudent("s1", "Bea"), 1)
			env.now = tt.at(exam)

			_, err := env.sessions.StartSession(context.Background(), tt.principal, exam.ID)
			if tt.wantPerm {
				if !IsPermissionError(err) {
					t.Errorf("error = %v, want permission error", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartSession_Resumes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	student := newStudent("s1", "Bea")
	env.assign(t, student, 2)
	env.now = exam.StartTime

	first, err := env.sessions.StartSession(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if _, err := env.sessions.SelectAnswer(ctx, student, exam.ID, first.Questions[0].ID, intPtr(2)); err != nil {
		t.Fatalf("SelectAnswer() error = %v", err)
	}

	env.now = exam.StartTime.Add(30 * time.Minute)
	second, err := env.sessions.StartSession(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("second StartSession() error = %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("SessionID = %q, want %q", second.SessionID, first.SessionID)
	}
	if second.Answered != 1 || *second.Questions[0].SelectedOption != 2 {
		t.Errorf("resumed session lost its answers: %+v", second.Questions[0])
	}
	if !second.StartedAt.Equal(*first.StartedAt) {
		t.Errorf("StartedAt moved from %v to %v", first.StartedAt, second.StartedAt)
	}
}

func TestSelectAnswer_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	student := newStudent("s1", "Bea")
	env.assign(t, student, 1)
	env.now = exam.StartTime

	if _, err := env.sessions.SelectAnswer(ctx, student, exam.ID, "q", intPtr(0)); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SelectAnswer() without session error = %v, want ErrSessionNotFound", err)
	}

	view, err := env.sessions.StartSession(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if _, err := env.sessions.SelectAnswer(ctx, student, exam.ID, view.Questions[0].ID, intPtr(4)); !IsValidationError(err) {
		t.Errorf("SelectAnswer(4) error = %v, want validation error", err)
	}
	if _, err := env.sessions.SelectAnswer(ctx, student, exam.ID, "unknown", intPtr(1)); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("SelectAnswer(unknown) error = %v, want ErrQuestionNotFound", err)
	}

	if _, err := env.sessions.SelectAnswer(ctx, student, exam.ID, view.Questions[0].ID, intPtr(1)); err != nil {
		t.Fatalf("SelectAnswer() error = %v", err)
	}
	cleared, err := env.sessions.SelectAnswer(ctx, student, exam.ID, view.Questions[0].ID, nil)
	if err != nil {
		t.Fatalf("SelectAnswer(nil) error = %v", err)
	}
	if cleared.SelectedOption != nil || cleared.Status != models.AnswerUnanswered {
		t.Errorf("cleared answer = %+v", cleared)
	}
}

func TestFlagQuestion_KeepsSelection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	student := newStudent("s1", "Bea")
	env.assign(t, student, 1)
	env.now = exam.StartTime

	view, err := env.sessions.StartSession(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	id := view.Questions[0].ID

	if _, err := env.sessions.SelectAnswer(ctx, student, exam.ID, id, intPtr(3)); err != nil {
		t.Fatalf("SelectAnswer() error = %v", err)
	}
	flagged, err := env.sessions.FlagQuestion(ctx, student, exam.ID, id, true)
	if err != nil {
		t.Fatalf("FlagQuestion() error = %v", err)
	}
	if flagged.Status != models.AnswerFlagged || *flagged.SelectedOption != 3 {
		t.Errorf("flagged = %+v", flagged)
	}

	unflagged, err := env.sessions.FlagQuestion(ctx, student, exam.ID, id, false)
	if err != nil {
		t.Fatalf("FlagQuestion(false) error = %v", err)
	}
	if unflagged.Status != models.AnswerAnswered {
		t.Errorf("unflagged status = %s, want answered", unflagged.Status)
	}
}

func TestSession_TimeoutSubmitsOnAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	student := newStudent("s1", "Bea")
	env.assign(t, student, 1)

	env.now = exam.StartTime
	env.answerAll(t, student, exam.ID, correctOption)

	env.now = exam.EndTime.Add(time.Minute)
	if _, err := env.sessions.GetSession(ctx, student, exam.ID); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("GetSession() after end error = %v, want ErrSessionClosed", err)
	}

	sub, err := env.repo.Submission().GetByExamStudent(ctx, nil, exam.ID, student.ID)
	if err != nil {
		t.Fatalf("submission not stored: %v", err)
	}
	if sub.SubmitReason != models.SubmitTimeout || sub.MarksObtained != 10 {
		t.Errorf("submission = reason %q marks %d, want timeout with 10", sub.SubmitReason, sub.MarksObtained)
	}
}

func TestSubmit_AfterEndIsTimeout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	student := newStudent("s1", "Bea")
	env.assign(t, student, 1)

	env.now = exam.StartTime
	env.answerAll(t, student, exam.ID, noOption)

	env.now = exam.EndTime.Add(time.Second)
	sub, err := env.sessions.Submit(ctx, student, exam.ID, models.SubmitManual)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.SubmitReason != models.SubmitTimeout || sub.Status != models.SubmissionFail {
		t.Errorf("submission = reason %q status %q", sub.SubmitReason, sub.Status)
	}
}

func TestSubmit_ConcurrentCallsStoreOneSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	student := newStudent("s1", "Bea")
	env.assign(t, student, 1)

	env.now = exam.StartTime
	env.answerAll(t, student, exam.ID, correctOption)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		others    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sessions.Submit(ctx, student, exam.ID, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			others = append(others, err)
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("successful submits = %d, want 1", succeeded)
	}
	for _, err := range others {
		if !errors.Is(err, ErrAlreadySubmitted) {
			t.Errorf("concurrent Submit() error = %v, want ErrAlreadySubmitted", err)
		}
	}
	if n := len(env.repo.submissions); n != 1 {
		t.Errorf("stored submissions = %d, want 1", n)
	}
}

func TestCloseExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.deployExam(t, "Midterm")
	open := newStudent("s1", "Bea")
	done := newStudent("s2", "Cal")
	env.assign(t, open, 1)
	env.assign(t, done, 2)

	env.now = exam.StartTime
	env.answerAll(t, open, exam.ID, correctOption)
	env.answerAll(t, done, exam.ID, noOption)
	if _, err := env.sessions.Submit(ctx, done, exam.ID, ""); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// past duration_minutes but still inside the window
	env.now = exam.StartTime.Add(time.Duration(exam.DurationMinutes+30) * time.Minute)
	closed, err := env.sessions.CloseExpiredSessions(ctx, 10)
	if err != nil || closed != 0 {
		t.Fatalf("CloseExpiredSessions() before end = %d, %v, want 0", closed, err)
	}

	env.now = exam.EndTime.Add(time.Minute)
	closed, err = env.sessions.CloseExpiredSessions(ctx, 10)
	if err != nil || closed != 1 {
		t.Fatalf("CloseExpiredSessions() = %d, %v, want 1", closed, err)
	}

	sub, err := env.repo.Submission().GetByExamStudent(ctx, nil, exam.ID, open.ID)
	if err != nil {
		t.Fatalf("expired session not submitted: %v", err)
	}
	if sub.SubmitReason != models.SubmitTimeout || sub.StudentName != "Bea" || sub.Percentage != 100 {
		t.Errorf("submission = %+v", sub)
	}

	closed, err = env.sessions.CloseExpiredSessions(ctx, 10)
	if err != nil || closed != 0 {
		t.Errorf("second sweep = %d, %v, want 0", closed, err)
	}
}

func TestBuildSessionView_RemainingNeverNegative(t *testing.T) {
	exam := &models.Exam{ID: "e", EndTime: baseTime}
	view := buildSessionView(exam, &models.ExamSession{ID: "s"}, baseTime.Add(time.Hour))
	if view.RemainingSeconds != 0 {
		t.Errorf("RemainingSeconds = %d, want 0", view.RemainingSeconds)
	}
}
