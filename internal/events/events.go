package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "exam-service"
	EventVersion = "1.0"
)

type EventType string

const (
	ExamDeployed       EventType = "exam.deployed"
	ExamStatusChanged  EventType = "exam.status_changed"
	SubmissionCreated  EventType = "submission.created"
	BatchAssigned      EventType = "batch.assigned"
	BatchRemoved       EventType = "batch.removed"
	QuestionsGenerated EventType = "questions.generated"
)

// Event is the envelope published for every domain event
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type ExamDeployedData struct {
	ExamID     string    `json:"exam_id"`
	Title      string    `json:"title"`
	SubjectID  string    `json:"subject_id"`
	TeacherID  string    `json:"teacher_id"`
	Class      string    `json:"class"`
	Semester   string    `json:"semester"`
	Batches    []int     `json:"batches"`
	TotalMarks int       `json:"total_marks"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

type ExamStatusChangedData struct {
	ExamID   string `json:"exam_id"`
	IsActive bool   `json:"is_active"`
	ActorID  string `json:"actor_id"`
}

type SubmissionCreatedData struct {
	SubmissionID  string  `json:"submission_id"`
	ExamID        string  `json:"exam_id"`
	StudentID     string  `json:"student_id"`
	MarksObtained int     `json:"marks_obtained"`
	TotalMarks    int     `json:"total_marks"`
	Percentage    float64 `json:"percentage"`
	Status        string  `json:"status"`
	Reason        string  `json:"reason"`
}

type BatchChangedData struct {
	TeacherID   string `json:"teacher_id"`
	SubjectID   string `json:"subject_id"`
	StudentID   string `json:"student_id"`
	Class       string `json:"class,omitempty"`
	BatchNumber int    `json:"batch_number"`
}

type QuestionsGeneratedData struct {
	SubjectID string `json:"subject_id"`
	TeacherID string `json:"teacher_id"`
	Provider  string `json:"provider"`
	Requested int    `json:"requested"`
	Stored    int    `json:"stored"`
	Rejected  int    `json:"rejected"`
}
