package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
}

func NewResultHandler(resultService services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
	}
}

// GetExamResults lists submissions; empty until the exam window has closed
// @Summary Get exam results
// @Tags results
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {array} models.Submission
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/results [get]
func (h *ResultHandler) GetExamResults(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	results, err := h.resultService.GetExamResults(c.Request.Context(), user, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetExamAnalytics
// @Summary Get exam analytics
// @Tags results
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.ExamAnalytics
// @Failure 403 {object} ErrorResponse
// @Router /exams/{id}/analytics [get]
func (h *ResultHandler) GetExamAnalytics(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	analytics, err := h.resultService.ComputeAnalytics(c.Request.Context(), user, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// ExportExamResults downloads the results workbook
// @Summary Export exam results
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Exam ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /exams/{id}/results/export [get]
func (h *ResultHandler) ExportExamResults(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	examID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting exam results", "exam_id", examID)

	workbook, err := h.resultService.ExportExamResults(c.Request.Context(), user, examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="exam-%s-results.xlsx"`, examID))
	c.Data(http.StatusOK, xlsxContentType, workbook)
}

// GetMyResults lists the calling student's graded exams
// @Summary List student results
// @Tags students
// @Produce json
// @Success 200 {array} models.StudentResult
// @Router /students/me/results [get]
func (h *ResultHandler) GetMyResults(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	results, err := h.resultService.GetStudentResults(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
