package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// SessionHandler serves the calling student's session for an exam
type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// StartSession starts or resumes the session
// @Summary Start exam session
// @Tags sessions
// @Produce json
// @Param id path string true "Exam ID"
// @Success 201 {object} models.SessionView
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/session [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Starting exam session", "exam_id", examID)

	view, err := h.sessionService.StartSession(c.Request.Context(), user, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSession
// @Summary Get exam session
// @Tags sessions
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.SessionView
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.sessionService.GetSession(c.Request.Context(), user, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SelectAnswer sets the selected option; a null selected_option clears it
// @Summary Select answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param question_id path string true "Exam question ID"
// @Param body body validator.SelectAnswerRequest true "Selection"
// @Success 200 {object} models.QuestionView
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/session/answers/{question_id} [put]
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := h.parseStringIDParam(c, "question_id")
	if !ok {
		return
	}

	var req validator.SelectAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	view, err := h.sessionService.SelectAnswer(c.Request.Context(), user, examID, questionID, req.SelectedOption)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// FlagQuestion
// @Summary Flag question for review
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param question_id path string true "Exam question ID"
// @Param body body validator.FlagQuestionRequest true "Flag"
// @Success 200 {object} models.QuestionView
// @Router /exams/{id}/session/flags/{question_id} [put]
func (h *SessionHandler) FlagQuestion(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := h.parseStringIDParam(c, "question_id")
	if !ok {
		return
	}

	var req validator.FlagQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	view, err := h.sessionService.FlagQuestion(c.Request.Context(), user, examID, questionID, req.Flagged)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Submit grades the session; only the first submission counts
// @Summary Submit exam
// @Tags sessions
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.Submission
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/session/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting exam", "exam_id", examID)

	submission, err := h.sessionService.Submit(c.Request.Context(), user, examID, models.SubmitManual)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
