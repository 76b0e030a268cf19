package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

// eligibility decides which deployed exams a student may see and sit.
// A student is eligible when the exam is active, matches their class and
// semester, and their batch for the exam's subject is one of the exam's batches.
type eligibility struct {
	repo repositories.Repository
	db   *gorm.DB
}

func (e eligibility) batchesBySubject(ctx context.Context, studentID string) (map[string]int, error) {
	assignments, err := e.repo.BatchAssignment().ListByStudent(ctx, e.db, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list student batches: %w", err)
	}
	batches := make(map[string]int, len(assignments))
	for _, a := range assignments {
		batches[a.SubjectID] = a.BatchNumber
	}
	return batches, nil
}

func isEligible(exam *models.Exam, student *models.User, batches map[string]int) bool {
	if !exam.IsActive || exam.Class != student.Class || exam.Semester != student.Semester {
		return false
	}
	batch, ok := batches[exam.SubjectID]
	return ok && exam.HasBatch(batch)
}

// eligibleExam loads the exam with its snapshot; ineligible students get ErrExamNotFound
func (e eligibility) eligibleExam(ctx context.Context, student *models.User, examID string) (*models.Exam, error) {
	exam, err := e.repo.Exam().GetByIDWithQuestions(ctx, e.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	batch, err := studentBatch(ctx, e.repo, e.db, student.ID, exam.SubjectID)
	if err != nil {
		return nil, err
	}
	batches := map[string]int{}
	if batch != nil {
		batches[exam.SubjectID] = *batch
	}
	if !isEligible(exam, student, batches) {
		return nil, ErrExamNotFound
	}
	return exam, nil
}
