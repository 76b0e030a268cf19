package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the exam together with its question snapshot
func (e *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := getDB(e.db, tx)
	if err := db.WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error) {
	db := getDB(e.db, tx)
	var exam models.Exam
	if err := db.WithContext(ctx).Where("id = ?", id).First(&exam).Error; err != nil {
		return nil, fmt.Errorf("failed to get exam %s: %w", id, err)
	}
	return &exam, nil
}

// GetByIDWithQuestions loads the exam and its snapshot; cached because both are immutable
func (e *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id string) (*models.Exam, error) {
	db := getDB(e.db, tx)
	var exam models.Exam

	err := e.cacheManager.Exam.CacheOrExecute(ctx, cache.ExamKey(id), &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		if err := db.WithContext(ctx).
			Preload("Questions", orderedQuestions).
			Where("id = ?", id).
			First(&dbExam).Error; err != nil {
			return nil, fmt.Errorf("failed to get exam %s: %w", id, err)
		}
		return &dbExam, nil
	})
	if err != nil {
		return nil, err
	}

	return &exam, nil
}

// ExistsByTitle compares titles case-insensitively within a class and semester
func (e *ExamPostgreSQL) ExistsByTitle(ctx context.Context, tx *gorm.DB, title, class, semester string) (bool, error) {
	db := getDB(e.db, tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("LOWER(title) = ? AND class = ? AND semester = ?", strings.ToLower(strings.TrimSpace(title)), class, semester).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check exam title: %w", err)
	}
	return count > 0, nil
}

// LockTitle serialises deployments of the same (title, class, semester) until tx ends
func (e *ExamPostgreSQL) LockTitle(ctx context.Context, tx *gorm.DB, title, class, semester string) error {
	db := getDB(e.db, tx)
	key := strings.ToLower(strings.TrimSpace(title)) + "|" + class + "|" + semester
	if err := db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to lock exam title: %w", err)
	}
	return nil
}

func (e *ExamPostgreSQL) ListActiveForCohort(ctx context.Context, tx *gorm.DB, class, semester string) ([]*models.Exam, error) {
	db := getDB(e.db, tx)
	var exams []*models.Exam
	if err := db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Where("class = ? AND semester = ? AND is_active = ?", class, semester, true).
		Order("start_time ASC").
		Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to list exams for cohort: %w", err)
	}
	return exams, nil
}

func (e *ExamPostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	db := getDB(e.db, tx)
	query := db.WithContext(ctx).Model(&models.Exam{})
	// empty teacherID lists every teacher's exams (admin view)
	if teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}
	query = e.helpers.ApplyExamFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count teacher exams: %w", err)
	}

	var exams []*models.Exam
	if err := e.helpers.ApplyPagination(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset).
		Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list teacher exams: %w", err)
	}

	return exams, total, nil
}

func (e *ExamPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Exam, error) {
	if len(ids) == 0 {
		return []*models.Exam{}, nil
	}
	db := getDB(e.db, tx)
	var exams []*models.Exam
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to get exams by ids: %w", err)
	}
	return exams, nil
}

// UpdateActive toggles is_active, the only column that changes after deployment
func (e *ExamPostgreSQL) UpdateActive(ctx context.Context, tx *gorm.DB, id string, active bool) error {
	db := getDB(e.db, tx)
	result := db.WithContext(ctx).Model(&models.Exam{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update exam status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update exam %s: %w", id, gorm.ErrRecordNotFound)
	}

	cache.InvalidateExamCache(ctx, e.cacheManager, id)
	return nil
}
