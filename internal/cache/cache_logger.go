package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and only logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// Key builders shared by repositories and services

func QuestionKey(id string) string { return "id:" + id }

func SubjectQuestionsPattern(subjectID string) string { return "subject:" + subjectID + ":*" }

func SubjectQuestionsKey(subjectID, variant string) string {
	return "subject:" + subjectID + ":" + variant
}

func ExamKey(id string) string { return "id:" + id + ":full" }

func ExamAnalyticsKey(examID string) string { return "exam:" + examID + ":submission-stats" }

// InvalidateQuestionCache drops the cached question and every list of its subject
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID, subjectID string) {
	SafeDelete(ctx, cm.Question, QuestionKey(questionID))
	SafeInvalidatePattern(ctx, cm.Question, SubjectQuestionsPattern(subjectID))
}

// InvalidateExamCache drops the cached exam and its analytics
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID string) {
	SafeDelete(ctx, cm.Exam, ExamKey(examID))
	SafeDelete(ctx, cm.Stats, ExamAnalyticsKey(examID))
}
