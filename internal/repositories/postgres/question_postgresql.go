package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Create creates a new question and invalidates the subject lists
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := getDB(q.db, tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, q.cacheManager.Question, cache.SubjectQuestionsPattern(question.SubjectID))
	return nil
}

// GetByID retrieves a question by ID with caching
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	db := getDB(q.db, tx)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.QuestionKey(id), &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := db.WithContext(ctx).Where("id = ?", id).First(&dbQuestion).Error; err != nil {
			return nil, fmt.Errorf("failed to get question %s: %w", id, err)
		}
		return &dbQuestion, nil
	})
	if err != nil {
		return nil, err
	}

	return &question, nil
}

// GetByIDs loads the given questions, preserving the order of ids
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	db := getDB(q.db, tx)
	var rows []*models.Question
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by ids: %w", err)
	}

	byID := make(map[string]*models.Question, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	questions := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		if question, ok := byID[id]; ok {
			questions = append(questions, question)
		}
	}
	return questions, nil
}

// Update saves every column of the question
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := getDB(q.db, tx)
	result := db.WithContext(ctx).Model(question).Select("*").Omit("id", "created_at").Updates(question)
	if result.Error != nil {
		return fmt.Errorf("failed to update question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update question %s: %w", question.ID, gorm.ErrRecordNotFound)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.SubjectID)
	return nil
}

// Delete removes a question from the bank. Deployed exams keep their snapshot.
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := getDB(q.db, tx)

	var question models.Question
	if err := db.WithContext(ctx).Select("id", "subject_id").Where("id = ?", id).First(&question).Error; err != nil {
		return fmt.Errorf("failed to get question before delete: %w", err)
	}

	if err := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.SubjectID)
	return nil
}

// ListBySubject lists the bank of a subject, oldest first
func (q *QuestionPostgreSQL) ListBySubject(ctx context.Context, tx *gorm.DB, subjectID string, filters repositories.QuestionFilters) ([]*models.Question, error) {
	db := getDB(q.db, tx)

	variant := "all"
	if filters.TeacherID != nil {
		variant = "teacher:" + *filters.TeacherID
	}
	if filters.Difficulty != nil {
		variant += ":difficulty:" + string(*filters.Difficulty)
	}

	var questions []*models.Question
	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.SubjectQuestionsKey(subjectID, variant), &questions, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		query := db.WithContext(ctx).Where("subject_id = ?", subjectID)
		if filters.TeacherID != nil {
			query = query.Where("teacher_id = ?", *filters.TeacherID)
		}
		if filters.Difficulty != nil {
			query = query.Where("difficulty = ?", *filters.Difficulty)
		}

		var rows []*models.Question
		if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to list questions by subject: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	return questions, nil
}
