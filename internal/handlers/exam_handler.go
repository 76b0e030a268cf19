package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

type ExamHandler struct {
	BaseHandler
	examService services.ExamService
}

func NewExamHandler(examService services.ExamService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		examService: examService,
	}
}

// ValidateExam checks a draft's composition without deploying it
// @Summary Validate exam draft
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.DeployExamRequest true "Exam draft"
// @Success 200 {object} validator.ExamValidationResult
// @Failure 400 {object} ErrorResponse
// @Router /exams/validate [post]
func (h *ExamHandler) ValidateExam(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.DeployExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.examService.ValidateDraft(c.Request.Context(), user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeployExam snapshots the selected questions into a new exam
// @Summary Deploy exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.DeployExamRequest true "Exam draft"
// @Success 201 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) DeployExam(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.DeployExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Deploying exam", "title", req.Title, "class", req.Class, "semester", req.Semester)

	exam, err := h.examService.DeployExam(c.Request.Context(), user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// CheckDuplicate reports whether the title is taken for the class and semester
// @Summary Check duplicate exam title
// @Tags exams
// @Produce json
// @Param title query string true "Title"
// @Param class query string true "Class"
// @Param semester query string true "Semester"
// @Success 200 {object} map[string]bool
// @Router /exams/duplicate [get]
func (h *ExamHandler) CheckDuplicate(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	title, class, semester := c.Query("title"), c.Query("class"), c.Query("semester")
	if strings.TrimSpace(title) == "" || strings.TrimSpace(class) == "" || strings.TrimSpace(semester) == "" {
		h.respondError(c, http.StatusBadRequest, "title, class and semester are required", nil)
		return
	}

	h.LogRequest(c, "Checking duplicate exam", "teacher_id", user.ID, "title", title)

	duplicate, err := h.examService.IsDuplicateExam(c.Request.Context(), title, class, semester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"duplicate": duplicate})
}

// ListExams lists the caller's exams; admins see every teacher's
// @Summary List exams
// @Tags exams
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param subject_id query string false "Subject ID"
// @Param class query string false "Class"
// @Param semester query string false "Semester"
// @Param is_active query bool false "Active flag"
// @Success 200 {object} services.ExamListResponse
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = 20
	}

	filters := repositories.ExamFilters{
		SubjectID: optionalQuery(c, "subject_id"),
		Class:     optionalQuery(c, "class"),
		Semester:  optionalQuery(c, "semester"),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if active := c.Query("is_active"); active != "" {
		value, err := strconv.ParseBool(active)
		if err != nil {
			h.respondError(c, http.StatusBadRequest, "Invalid is_active", active)
			return
		}
		filters.IsActive = &value
	}

	resp, err := h.examService.ListTeacherExams(c.Request.Context(), user, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetExam returns the exam; students get it without questions
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), user, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// SetExamActive
// @Summary Activate or deactivate exam
// @Tags exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param body body validator.SetExamActiveRequest true "Active flag"
// @Success 200 {object} models.Exam
// @Failure 403 {object} ErrorResponse
// @Router /exams/{id}/active [put]
func (h *ExamHandler) SetExamActive(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req validator.SetExamActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Setting exam active flag", "exam_id", id, "is_active", req.IsActive)

	exam, err := h.examService.SetExamActive(c.Request.Context(), user, id, req.IsActive)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// GetMyExams lists the exams the calling student may take now, or has taken
// @Summary List student exams
// @Tags students
// @Produce json
// @Success 200 {object} models.StudentExamList
// @Failure 403 {object} ErrorResponse
// @Router /students/me/exams [get]
func (h *ExamHandler) GetMyExams(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	exams, err := h.examService.GetExamsForStudent(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}
