package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/generation"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	ExamRules             validator.ExamRules
	DefaultPassPercentage float64
	MaxGeneratedQuestions int

	// Expired sessions are closed in batches of SweepBatchSize every SweepInterval
	SweepInterval  time.Duration
	SweepBatchSize int
}

func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		ExamRules:             validator.DefaultExamRules(),
		DefaultPassPercentage: 0,
		MaxGeneratedQuestions: 20,
		SweepInterval:         time.Minute,
		SweepBatchSize:        100,
	}
}

// ServiceDependencies are the collaborators shared by every service
type ServiceDependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Publisher events.EventPublisher
	Cache     *cache.CacheManager
	Generator generation.QuestionGenerator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceDependencies
	config ServiceManagerConfig
	policy AccessPolicy

	// Service instances
	questionBankService QuestionBankService
	batchService        BatchService
	examService         ExamService
	sessionService      SessionService
	resultService       ResultService
	generationService   GenerationService
	dashboardService    DashboardService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewLogEventPublisher(deps.Logger)
	}
	return &serviceManager{
		deps:   deps,
		config: config,
		policy: NewAccessPolicy(),
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	d := sm.deps
	sm.questionBankService = NewQuestionBankService(d.Repo, d.DB, d.Logger, d.Validator, sm.policy)
	sm.batchService = NewBatchService(d.Repo, d.DB, d.Logger, d.Validator, sm.policy, d.Publisher)
	sm.examService = NewExamService(d.Repo, d.DB, d.Logger, d.Validator, sm.policy, d.Publisher, sm.config.ExamRules, sm.config.DefaultPassPercentage)
	sm.sessionService = NewSessionService(d.Repo, d.DB, d.Logger, sm.policy, d.Publisher, d.Cache)
	sm.resultService = NewResultService(d.Repo, d.DB, d.Logger, sm.policy, d.Cache)
	sm.generationService = NewGenerationService(d.Generator, sm.questionBankService, d.Logger, d.Validator, sm.policy, d.Publisher, sm.config.MaxGeneratedQuestions)
	sm.dashboardService = NewDashboardService(d.Repo, d.DB, d.Logger, sm.policy)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully",
		"generation_enabled", sm.generationService.Enabled())

	return nil
}

// Service getters; they return nil before Initialize
func (sm *serviceManager) QuestionBank() QuestionBankService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.questionBankService
}

func (sm *serviceManager) Batch() BatchService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.batchService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.examService
}

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessionService
}

func (sm *serviceManager) Result() ResultService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.resultService
}

func (sm *serviceManager) Generation() GenerationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.generationService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.dashboardService
}

func (sm *serviceManager) Policy() AccessPolicy {
	return sm.policy
}

// RunSessionSweeper closes expired sessions until ctx is cancelled
func (sm *serviceManager) RunSessionSweeper(ctx context.Context) {
	interval := sm.config.SweepInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			session := sm.Session()
			if session == nil {
				continue
			}
			if _, err := session.CloseExpiredSessions(ctx, sm.config.SweepBatchSize); err != nil {
				sm.deps.Logger.Error("Session sweep failed", "error", err)
			}
		}
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// cache is optional; a failure degrades to direct reads
	if err := sm.deps.Cache.HealthCheck(ctx); err != nil {
		sm.deps.Logger.Warn("Cache health check failed", "error", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Generator != nil {
		if err := sm.deps.Generator.Close(); err != nil {
			sm.deps.Logger.Warn("Failed to close question generator", "error", err)
		}
	}
	if err := sm.deps.Publisher.Close(); err != nil {
		sm.deps.Logger.Warn("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down")
	return nil
}
