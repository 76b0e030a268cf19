package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Path      string      `json:"path,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the logging and error mapping shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "user_id", c.GetString("user_id"))
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.Request.URL.Path)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

func (h *BaseHandler) respondError(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{
		Message:   message,
		Details:   details,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

// principal returns the authenticated user, answering 401 when there is none
func (h *BaseHandler) principal(c *gin.Context) (*models.User, bool) {
	user, err := GetUserFromContext(c)
	if err != nil {
		h.respondError(c, http.StatusUnauthorized, "User not authenticated", nil)
		return nil, false
	}
	return user, true
}

func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	return true
}

// parseStringIDParam reads a non-blank path parameter
func (h *BaseHandler) parseStringIDParam(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		h.respondError(c, http.StatusBadRequest, "Missing "+name, nil)
		return "", false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, name string, def int) int {
	value := c.Query(name)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

func optionalQuery(c *gin.Context, name string) *string {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		return nil
	}
	return &value
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.respondError(c, http.StatusBadRequest, "Validation failed", validationErrors)
		return
	}

	var examErr *services.ExamValidationError
	if errors.As(err, &examErr) {
		h.respondError(c, http.StatusBadRequest, "Exam validation failed", examErr.Errors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.respondError(c, http.StatusForbidden, "Access denied", map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuestionNotFound):
		h.respondError(c, http.StatusNotFound, "Question not found", nil)
	case errors.Is(err, services.ErrExamNotFound):
		h.respondError(c, http.StatusNotFound, "Exam not found", nil)
	case errors.Is(err, services.ErrBatchAssignmentNotFound):
		h.respondError(c, http.StatusNotFound, "Batch assignment not found", nil)
	case errors.Is(err, services.ErrSessionNotFound):
		h.respondError(c, http.StatusNotFound, "Exam session not found", nil)
	case errors.Is(err, services.ErrDuplicateExam),
		errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrSessionClosed),
		errors.Is(err, services.ErrExamNotStarted):
		h.respondError(c, http.StatusConflict, capitalize(err.Error()), nil)
	case errors.Is(err, services.ErrGenerationFailed):
		h.LogError(c, err, "Question generation failed")
		h.respondError(c, http.StatusBadGateway, "Question generation failed", nil)
	case errors.Is(err, services.ErrGenerationDisabled):
		h.respondError(c, http.StatusServiceUnavailable, "Question generation is not configured", nil)
	default:
		h.LogError(c, err, "Unexpected service error")
		h.respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
