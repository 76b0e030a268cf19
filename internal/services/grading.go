package services

import (
	"math"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// GradeAnswers scores a selection set against the exam snapshot.
// A question is correct only when an option was selected and it matches the key.
// The caller fills in student, reason and timestamps.
func GradeAnswers(exam *models.Exam, selections map[string]*int) *models.Submission {
	submission := &models.Submission{
		ExamID:         exam.ID,
		TotalQuestions: len(exam.Questions),
		Answers:        make([]models.SubmissionAnswer, 0, len(exam.Questions)),
	}

	for _, q := range exam.Questions {
		selected := selections[q.ID]
		answer := models.SubmissionAnswer{
			Position:       q.Position,
			ExamQuestionID: q.ID,
		}
		if selected != nil {
			option := *selected
			answer.SelectedOption = &option
		}

		submission.TotalMarks += q.Marks
		if selected != nil && *selected == q.CorrectAnswer {
			answer.IsCorrect = true
			answer.MarksObtained = q.Marks
			submission.CorrectAnswers++
			submission.MarksObtained += q.Marks
		} else {
			submission.WrongAnswers++
		}
		submission.Answers = append(submission.Answers, answer)
	}

	percentage := 0.0
	if submission.TotalMarks > 0 {
		percentage = 100 * float64(submission.MarksObtained) / float64(submission.TotalMarks)
	}
	percentage = math.Max(0, math.Min(100, percentage))
	submission.Percentage = math.Round(percentage*100) / 100

	// status follows the stored percentage
	submission.Status = models.SubmissionFail
	if submission.Percentage >= exam.EffectivePassPercentage() {
		submission.Status = models.SubmissionPass
	}

	return submission
}
