package handlers

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	BaseHandler
	batchService services.BatchService
	policy       services.AccessPolicy
}

func NewBatchHandler(batchService services.BatchService, policy services.AccessPolicy, logger utils.Logger) *BatchHandler {
	return &BatchHandler{
		BaseHandler:  NewBaseHandler(logger),
		batchService: batchService,
		policy:       policy,
	}
}

// StudentBatchResponse is the batch of one student for one subject; BatchNumber is null when unassigned
type StudentBatchResponse struct {
	StudentID   string `json:"student_id"`
	SubjectID   string `json:"subject_id"`
	BatchNumber *int   `json:"batch_number"`
}

// AssignBatch places a student into a batch; batch_number 0 removes the assignment
// @Summary Assign batch
// @Tags batches
// @Accept json
// @Produce json
// @Param assignment body services.AssignBatchRequest true "Assignment"
// @Success 200 {object} models.BatchAssignment
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /batches [put]
func (h *BatchHandler) AssignBatch(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.AssignBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Assigning batch", "student_id", req.StudentID, "subject_id", req.SubjectID, "batch", req.BatchNumber)

	assignment, err := h.batchService.AssignBatch(c.Request.Context(), user, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if assignment == nil {
		c.JSON(http.StatusOK, SuccessResponse{Message: "Batch assignment removed"})
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// RemoveBatch
// @Summary Remove batch assignment
// @Tags batches
// @Param subject_id path string true "Subject ID"
// @Param student_id path string true "Student ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /batches/{subject_id}/students/{student_id} [delete]
func (h *BatchHandler) RemoveBatch(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	subjectID, ok := h.parseStringIDParam(c, "subject_id")
	if !ok {
		return
	}
	studentID, ok := h.parseStringIDParam(c, "student_id")
	if !ok {
		return
	}

	if err := h.batchService.RemoveBatchAssignment(c.Request.Context(), user, studentID, subjectID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListBatches lists a subject's assignments, optionally for one class
// @Summary List batch assignments
// @Tags batches
// @Produce json
// @Param subject_id query string true "Subject ID"
// @Param class query string false "Class"
// @Success 200 {array} models.BatchAssignment
// @Router /batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	subjectID := strings.TrimSpace(c.Query("subject_id"))
	if subjectID == "" {
		h.respondError(c, http.StatusBadRequest, "subject_id is required", nil)
		return
	}

	assignments, err := h.batchService.GetBatchAssignments(c.Request.Context(), user, subjectID, strings.TrimSpace(c.Query("class")))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}

// GetStudentBatch is open to batch managers and to the student themself
// @Summary Get student batch
// @Tags batches
// @Produce json
// @Param subject_id path string true "Subject ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} StudentBatchResponse
// @Failure 403 {object} ErrorResponse
// @Router /batches/{subject_id}/students/{student_id} [get]
func (h *BatchHandler) GetStudentBatch(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}
	subjectID, ok := h.parseStringIDParam(c, "subject_id")
	if !ok {
		return
	}
	studentID, ok := h.parseStringIDParam(c, "student_id")
	if !ok {
		return
	}

	if user.ID != studentID {
		if err := h.policy.Require(user, services.CapManageBatches); err != nil {
			h.handleServiceError(c, err)
			return
		}
	}

	batch, err := h.batchService.GetStudentBatch(c.Request.Context(), studentID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, StudentBatchResponse{
		StudentID:   studentID,
		SubjectID:   subjectID,
		BatchNumber: batch,
	})
}
