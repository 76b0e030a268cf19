package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type GenerationHandler struct {
	BaseHandler
	generationService services.GenerationService
}

func NewGenerationHandler(generationService services.GenerationService, logger utils.Logger) *GenerationHandler {
	return &GenerationHandler{
		BaseHandler:       NewBaseHandler(logger),
		generationService: generationService,
	}
}

// GenerateQuestions drafts questions with the configured provider, storing them when save is set
// @Summary Generate questions
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.GenerateQuestionsRequest true "Generation request"
// @Success 200 {object} services.GenerateQuestionsResponse
// @Success 201 {object} services.GenerateQuestionsResponse
// @Success 207 {object} services.GenerateQuestionsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /questions/generate [post]
func (h *GenerationHandler) GenerateQuestions(c *gin.Context) {
	user, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.GenerateQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Generating questions", "subject_id", req.SubjectID, "count", req.Count, "save", req.Save)

	resp, err := h.generationService.GenerateQuestions(c.Request.Context(), user, &req)
	if err != nil {
		if resp != nil && len(resp.Questions) > 0 {
			h.LogError(c, err, "Generated questions partially stored", "stored", len(resp.Questions), "unsaved", len(resp.Unsaved))
			c.JSON(http.StatusMultiStatus, resp)
			return
		}
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if req.Save && len(resp.Questions) > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}
