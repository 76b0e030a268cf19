package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

const serviceName = "exam-service"

type HandlerManager struct {
	questionHandler   *QuestionHandler
	generationHandler *GenerationHandler
	batchHandler      *BatchHandler
	examHandler       *ExamHandler
	sessionHandler    *SessionHandler
	resultHandler     *ResultHandler
	dashboardHandler  *DashboardHandler

	policy       services.AccessPolicy
	authenticate gin.HandlerFunc
	healthCheck  func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo, logger)
	return newHandlerManager(serviceManager, logger, authMiddleware.AuthMiddleware())
}

func newHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, authenticate gin.HandlerFunc) *HandlerManager {
	return &HandlerManager{
		questionHandler:   NewQuestionHandler(serviceManager.QuestionBank(), logger),
		generationHandler: NewGenerationHandler(serviceManager.Generation(), logger),
		batchHandler:      NewBatchHandler(serviceManager.Batch(), serviceManager.Policy(), logger),
		examHandler:       NewExamHandler(serviceManager.Exam(), logger),
		sessionHandler:    NewSessionHandler(serviceManager.Session(), logger),
		resultHandler:     NewResultHandler(serviceManager.Result(), logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), logger),
		policy:            serviceManager.Policy(),
		authenticate:      authenticate,
		healthCheck:       serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authenticate)
	{
		questions := v1.Group("/questions")
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.POST("/generate", RequireCapability(hm.policy, services.CapGenerateQuestions), hm.generationHandler.GenerateQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		v1.GET("/subjects/:subject_id/questions", hm.questionHandler.ListSubjectQuestions)

		batches := v1.Group("/batches")
		{
			batches.PUT("", hm.batchHandler.AssignBatch)
			batches.GET("", hm.batchHandler.ListBatches)
			batches.GET("/:subject_id/students/:student_id", hm.batchHandler.GetStudentBatch)
			batches.DELETE("/:subject_id/students/:student_id", hm.batchHandler.RemoveBatch)
		}

		exams := v1.Group("/exams")
		{
			exams.POST("/validate", hm.examHandler.ValidateExam)
			exams.GET("/duplicate", RequireCapability(hm.policy, services.CapDeployExams), hm.examHandler.CheckDuplicate)
			exams.POST("", hm.examHandler.DeployExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.PUT("/:id/active", hm.examHandler.SetExamActive)

			// Taking the exam
			exams.POST("/:id/session", hm.sessionHandler.StartSession)
			exams.GET("/:id/session", hm.sessionHandler.GetSession)
			exams.PUT("/:id/session/answers/:question_id", hm.sessionHandler.SelectAnswer)
			exams.PUT("/:id/session/flags/:question_id", hm.sessionHandler.FlagQuestion)
			exams.POST("/:id/session/submit", hm.sessionHandler.Submit)

			exams.GET("/:id/results", hm.resultHandler.GetExamResults)
			exams.GET("/:id/results/export", hm.resultHandler.ExportExamResults)
			exams.GET("/:id/analytics", hm.resultHandler.GetExamAnalytics)
		}

		students := v1.Group("/students/me")
		{
			students.GET("/exams", hm.examHandler.GetMyExams)
			students.GET("/results", hm.resultHandler.GetMyResults)
		}

		dashboard := v1.Group("/dashboard")
		dashboard.Use(RequireCapability(hm.policy, services.CapDeployExams))
		{
			dashboard.GET("/teacher", hm.dashboardHandler.GetTeacherDashboard)
		}
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.healthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
