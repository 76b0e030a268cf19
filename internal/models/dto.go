package models

import "time"

// StudentExamList splits a student's eligible exams by state.
type StudentExamList struct {
	ActiveExams   []*ExamSummary `json:"active_exams"`
	AttendedExams []*ExamSummary `json:"attended_exams"`
}

// ExamSummary is the listing view of an exam; it never carries the answer key.
type ExamSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	SubjectID       string    `json:"subject_id"`
	Class           string    `json:"class"`
	Semester        string    `json:"semester"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	PassPercentage  float64   `json:"pass_percentage"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	QuestionCount   int       `json:"question_count"`
	Submitted       bool      `json:"submitted"`
}

func NewExamSummary(e *Exam) *ExamSummary {
	return &ExamSummary{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		SubjectID:       e.SubjectID,
		Class:           e.Class,
		Semester:        e.Semester,
		DurationMinutes: e.DurationMinutes,
		TotalMarks:      e.TotalMarks,
		PassPercentage:  e.EffectivePassPercentage(),
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		QuestionCount:   len(e.Questions),
	}
}

// ExamAnalytics is derived on read from an exam's submissions.
type ExamAnalytics struct {
	ExamID            string        `json:"exam_id"`
	TotalStudents     int           `json:"total_students"`
	PassedStudents    int           `json:"passed_students"`
	FailedStudents    int           `json:"failed_students"`
	HighestMarks      int           `json:"highest_marks"`
	LowestMarks       int           `json:"lowest_marks"`
	AverageMarks      float64       `json:"average_marks"`
	AveragePercentage float64       `json:"average_percentage"`
	AbsentStudents    []RosterEntry `json:"absent_students"`
}

// StudentResult pairs a submission with the exam it belongs to.
type StudentResult struct {
	Submission *Submission  `json:"submission"`
	Exam       *ExamSummary `json:"exam"`
}

// QuestionView is a snapshot question as shown to a student.
type QuestionView struct {
	ID             string          `json:"id"`
	Position       int             `json:"position"`
	Text           string          `json:"text"`
	Options        []string        `json:"options"`
	Difficulty     DifficultyLevel `json:"difficulty"`
	Marks          int             `json:"marks"`
	SelectedOption *int            `json:"selected_option"`
	Status         AnswerStatus    `json:"status"`
}

// SessionView is the in-progress session returned to the student.
type SessionView struct {
	SessionID        string          `json:"session_id"`
	ExamID           string          `json:"exam_id"`
	Title            string          `json:"title"`
	Status           SessionStatus   `json:"status"`
	StartedAt        *time.Time      `json:"started_at"`
	EndTime          time.Time       `json:"end_time"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	TotalMarks       int             `json:"total_marks"`
	Answered         int             `json:"answered"`
	Flagged          int             `json:"flagged"`
	Questions        []*QuestionView `json:"questions"`
}
