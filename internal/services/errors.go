package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/validator"
)

var (
	ErrQuestionNotFound        = errors.New("question not found")
	ErrExamNotFound            = errors.New("exam not found")
	ErrBatchAssignmentNotFound = errors.New("batch assignment not found")
	ErrSessionNotFound         = errors.New("exam session not found")

	ErrDuplicateExam    = errors.New("an exam with this title already exists for the class and semester")
	ErrAlreadySubmitted = errors.New("exam already submitted")
	ErrSessionClosed    = errors.New("exam session is closed")
	ErrExamNotStarted   = errors.New("exam has not started yet")

	ErrGenerationFailed   = errors.New("question generation failed")
	ErrGenerationDisabled = errors.New("question generation is not configured")
)

// ValidationErrors is returned when a request fails field validation
type ValidationErrors = validator.ValidationErrors

// ExamValidationError carries the composition rules an exam draft broke
type ExamValidationError struct {
	Errors []string
}

func (e *ExamValidationError) Error() string {
	return "exam validation failed: " + strings.Join(e.Errors, "; ")
}

// PermissionError is returned when the caller lacks a capability or does not own the resource
type PermissionError struct {
	UserID   string
	Action   string
	Resource string
	Reason   string
}

func (e *PermissionError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("permission denied: %s (%s)", e.Action, e.Reason)
	}
	return fmt.Sprintf("permission denied: %s on %s (%s)", e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID, action, resource, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Action:   action,
		Resource: resource,
		Reason:   reason,
	}
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

func IsValidationError(err error) bool {
	var ve ValidationErrors
	var eve *ExamValidationError
	return errors.As(err, &ve) || errors.As(err, &eve)
}
