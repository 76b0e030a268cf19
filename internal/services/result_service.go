package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type resultService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	policy AccessPolicy
	cache  *cache.CacheManager
	now    func() time.Time
}

func NewResultService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, policy AccessPolicy, cacheManager *cache.CacheManager) ResultService {
	return &resultService{
		repo:   repo,
		db:     db,
		logger: logger,
		policy: policy,
		cache:  cacheManager,
		now:    time.Now,
	}
}

// GetExamResults lists the exam's submissions; it stays empty until the window closes
func (s *resultService) GetExamResults(ctx context.Context, principal *models.User, examID string) ([]*models.Submission, error) {
	exam, err := s.viewableExam(ctx, principal, examID)
	if err != nil {
		return nil, err
	}
	return s.examResults(ctx, exam)
}

func (s *resultService) examResults(ctx context.Context, exam *models.Exam) ([]*models.Submission, error) {
	if !exam.ResultsVisibleAt(s.now()) {
		return []*models.Submission{}, nil
	}

	submissions, err := s.repo.Submission().ListByExam(ctx, s.db, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// GetStudentResults returns the caller's submissions for exams whose window has closed
func (s *resultService) GetStudentResults(ctx context.Context, principal *models.User) ([]*models.StudentResult, error) {
	if err := s.policy.Require(principal, CapViewOwnResults); err != nil {
		return nil, err
	}

	submissions, err := s.repo.Submission().ListByStudent(ctx, s.db, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	if len(submissions) == 0 {
		return []*models.StudentResult{}, nil
	}

	ids := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		ids = append(ids, sub.ExamID)
	}
	exams, err := s.repo.Exam().GetByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load exams: %w", err)
	}
	byID := make(map[string]*models.Exam, len(exams))
	for _, exam := range exams {
		byID[exam.ID] = exam
	}

	now := s.now()
	results := make([]*models.StudentResult, 0, len(submissions))
	for _, sub := range submissions {
		exam, ok := byID[sub.ExamID]
		if !ok || !exam.ResultsVisibleAt(now) {
			continue
		}
		summary := models.NewExamSummary(exam)
		summary.QuestionCount = sub.TotalQuestions
		summary.Submitted = true
		results = append(results, &models.StudentResult{Submission: sub, Exam: summary})
	}

	return results, nil
}

// ComputeAnalytics derives statistics from the submission set and the eligible roster
func (s *resultService) ComputeAnalytics(ctx context.Context, principal *models.User, examID string) (*models.ExamAnalytics, error) {
	exam, err := s.viewableExam(ctx, principal, examID)
	if err != nil {
		return nil, err
	}
	return s.analytics(ctx, exam)
}

// submissionStats is the cacheable part of the analytics; the roster and batches are read on every call
type submissionStats struct {
	Analytics models.ExamAnalytics `json:"analytics"`
	Submitted []string             `json:"submitted"`
}

func (s *resultService) analytics(ctx context.Context, exam *models.Exam) (*models.ExamAnalytics, error) {
	var (
		stats       *submissionStats
		roster      []*models.User
		assignments []*models.BatchAssignment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.cachedSubmissionStats(gctx, exam)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.repo.User().ListStudents(gctx, repositories.RosterFilters{Class: exam.Class, Semester: exam.Semester})
		if err != nil {
			return fmt.Errorf("failed to load roster: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assignments, err = s.repo.BatchAssignment().ListByScope(gctx, s.db, repositories.BatchScope{SubjectID: exam.SubjectID})
		if err != nil {
			return fmt.Errorf("failed to load batch assignments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	submitted := make(map[string]bool, len(stats.Submitted))
	for _, id := range stats.Submitted {
		submitted[id] = true
	}
	analytics := stats.Analytics
	analytics.AbsentStudents = absentStudents(exam, roster, assignments, submitted)
	return &analytics, nil
}

func (s *resultService) cachedSubmissionStats(ctx context.Context, exam *models.Exam) (*submissionStats, error) {
	// the submission set is final only after the window closed
	if !exam.ResultsVisibleAt(s.now()) || s.cache == nil {
		return s.loadSubmissionStats(ctx, exam)
	}

	var stats submissionStats
	err := s.cache.Stats.CacheOrExecute(ctx, cache.ExamAnalyticsKey(exam.ID), &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.loadSubmissionStats(ctx, exam)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *resultService) loadSubmissionStats(ctx context.Context, exam *models.Exam) (*submissionStats, error) {
	submissions, err := s.repo.Submission().ListByExam(ctx, s.db, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	stats := &submissionStats{
		Analytics: *summarize(exam.ID, submissions),
		Submitted: make([]string, 0, len(submissions)),
	}
	for _, sub := range submissions {
		stats.Submitted = append(stats.Submitted, sub.StudentID)
	}
	return stats, nil
}

func summarize(examID string, submissions []*models.Submission) *models.ExamAnalytics {
	analytics := &models.ExamAnalytics{
		ExamID:         examID,
		TotalStudents:  len(submissions),
		AbsentStudents: []models.RosterEntry{},
	}
	if len(submissions) == 0 {
		return analytics
	}

	analytics.LowestMarks = math.MaxInt
	totalMarks, totalPercentage := 0, 0.0
	for _, sub := range submissions {
		if sub.Passed() {
			analytics.PassedStudents++
		} else {
			analytics.FailedStudents++
		}
		analytics.HighestMarks = max(analytics.HighestMarks, sub.MarksObtained)
		analytics.LowestMarks = min(analytics.LowestMarks, sub.MarksObtained)
		totalMarks += sub.MarksObtained
		totalPercentage += sub.Percentage
	}

	n := float64(len(submissions))
	analytics.AverageMarks = round2(float64(totalMarks) / n)
	analytics.AveragePercentage = round2(totalPercentage / n)
	return analytics
}

// absentStudents is the eligible roster minus everyone who submitted
func absentStudents(exam *models.Exam, roster []*models.User, assignments []*models.BatchAssignment, submitted map[string]bool) []models.RosterEntry {
	batchOf := make(map[string]int, len(assignments))
	for _, a := range assignments {
		batchOf[a.StudentID] = a.BatchNumber
	}

	absent := []models.RosterEntry{}
	for _, student := range roster {
		batch, ok := batchOf[student.ID]
		if !ok || !exam.HasBatch(batch) || submitted[student.ID] {
			continue
		}
		absent = append(absent, models.RosterEntry{
			StudentID:   student.ID,
			StudentName: student.FullName,
			Email:       student.Email,
		})
	}

	sort.Slice(absent, func(i, j int) bool {
		if absent[i].StudentName == absent[j].StudentName {
			return absent[i].StudentID < absent[j].StudentID
		}
		return absent[i].StudentName < absent[j].StudentName
	})
	return absent
}

// ===== EXPORT =====

var resultHeaders = []string{"Student ID", "Student", "Marks", "Total Marks", "Percentage", "Status", "Reason", "Submitted At"}

// ExportExamResults renders the results and analytics as an xlsx workbook
func (s *resultService) ExportExamResults(ctx context.Context, principal *models.User, examID string) ([]byte, error) {
	exam, err := s.viewableExam(ctx, principal, examID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.examResults(ctx, exam)
	if err != nil {
		return nil, err
	}
	analytics, err := s.analytics(ctx, exam)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := writeResultsSheet(f, submissions); err != nil {
		return nil, fmt.Errorf("failed to write results sheet: %w", err)
	}
	if err := writeSummarySheet(f, exam, analytics); err != nil {
		return nil, fmt.Errorf("failed to write summary sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exam results exported", "exam_id", examID, "rows", len(submissions), "user_id", principal.ID)
	return buf.Bytes(), nil
}

func writeResultsSheet(f *excelize.File, submissions []*models.Submission) error {
	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, "A1", &resultHeaders); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, sub := range submissions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			sub.StudentID,
			sub.StudentName,
			sub.MarksObtained,
			sub.TotalMarks,
			sub.Percentage,
			string(sub.Status),
			string(sub.SubmitReason),
			sub.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "H", 18)
}

func writeSummarySheet(f *excelize.File, exam *models.Exam, analytics *models.ExamAnalytics) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Exam", exam.Title},
		{"Class", exam.Class},
		{"Semester", exam.Semester},
		{"Total Marks", exam.TotalMarks},
		{"Pass Percentage", exam.EffectivePassPercentage()},
		{"Students Submitted", analytics.TotalStudents},
		{"Passed", analytics.PassedStudents},
		{"Failed", analytics.FailedStudents},
		{"Highest Marks", analytics.HighestMarks},
		{"Lowest Marks", analytics.LowestMarks},
		{"Average Marks", analytics.AverageMarks},
		{"Average Percentage", analytics.AveragePercentage},
		{"Absent", len(analytics.AbsentStudents)},
	}
	for _, absent := range analytics.AbsentStudents {
		rows = append(rows, []interface{}{"Absent Student", absent.StudentName, absent.StudentID})
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "C", 22)
}

// ===== HELPERS =====

func (s *resultService) viewableExam(ctx context.Context, principal *models.User, examID string) (*models.Exam, error) {
	if err := s.policy.Require(principal, CapViewExamResults); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if err := s.policy.CanViewExamResults(principal, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
