package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/repository"
)

// DashboardService assembles role-specific payloads from the analytics
// engine. It shapes and scopes; every number comes from upstream. Payloads
// are cached briefly in Redis since dashboards tolerate a slightly stale
// snapshot; the state machine never reads from here.
type DashboardService interface {
	StudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
	TeacherDashboard(ctx context.Context, classID uint, actor Actor) (dto.TeacherDashboardResponse, error)
	AdminDashboard(ctx context.Context) (dto.AdminDashboardResponse, error)
}

type dashboardService struct {
	students  repository.StudentRepository
	chapters  repository.ChapterRepository
	progress  repository.ProgressRepository
	classes   repository.ClassRepository
	analytics AnalyticsService
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

// NewDashboardService builds the dashboard composer.
func NewDashboardService(
	students repository.StudentRepository,
	chapters repository.ChapterRepository,
	progress repository.ProgressRepository,
	classes repository.ClassRepository,
	analytics AnalyticsService,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		students:  students,
		chapters:  chapters,
		progress:  progress,
		classes:   classes,
		analytics: analytics,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "dashboard_service").Logger(),
	}
}

func (s *dashboardService) StudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%d", studentID)

	var cached dto.StudentDashboardResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentDashboardResponse{}, ErrStudentNotFound
		}
		return dto.StudentDashboardResponse{}, err
	}

	chapters, err := s.chapters.ListByClass(ctx, student.ClassID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	records, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := buildStudentDashboard(chapters, records)
	s.writeCache(ctx, cacheKey, response)

	return response, nil
}

// TeacherDashboard composes the class-level view. The actor must be an
// admin or the teacher homed in the class; anyone else is refused before
// any metric is computed.
func (s *dashboardService) TeacherDashboard(ctx context.Context, classID uint, actor Actor) (dto.TeacherDashboardResponse, error) {
	if err := s.analytics.AuthorizeClass(ctx, classID, actor); err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	cacheKey := fmt.Sprintf("dashboard:teacher:%d:%d", actor.ID, classID)

	var cached dto.TeacherDashboardResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	coverage, err := s.analytics.SyllabusCoverage(ctx, &classID)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	active, err := s.analytics.WeeklyActiveStudents(ctx, &classID)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	struggling, err := s.analytics.StrugglingStudents(ctx, classID)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	gradings, err := s.analytics.PendingGradings(ctx, actor.ID, &classID)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	response := dto.TeacherDashboardResponse{
		ActiveStudents:  active,
		Struggling:      struggling,
		PendingGradings: gradings,
	}
	if len(coverage) > 0 {
		response.Coverage = coverage[0]
	}

	s.writeCache(ctx, cacheKey, response)

	return response, nil
}

func (s *dashboardService) AdminDashboard(ctx context.Context) (dto.AdminDashboardResponse, error) {
	const cacheKey = "dashboard:admin"

	var cached dto.AdminDashboardResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	coverage, err := s.analytics.SyllabusCoverage(ctx, nil)
	if err != nil {
		return dto.AdminDashboardResponse{}, err
	}

	active, err := s.analytics.WeeklyActiveStudents(ctx, nil)
	if err != nil {
		return dto.AdminDashboardResponse{}, err
	}

	response := dto.AdminDashboardResponse{
		Coverage:       coverage,
		ActiveStudents: active,
		TotalClasses:   len(coverage),
	}

	s.writeCache(ctx, cacheKey, response)

	return response, nil
}

// buildStudentDashboard shapes the student's own records against the class
// syllabus. Chapters without a record are rendered accessible or locked by
// the same reachability rule the resolver uses, evaluated over the data
// already in hand.
func buildStudentDashboard(chapters []models.Chapter, records []models.ChapterProgress) dto.StudentDashboardResponse {
	recordByChapter := make(map[uint]models.ChapterProgress, len(records))
	completed := make(map[uint]bool, len(records))
	for _, record := range records {
		recordByChapter[record.ChapterID] = record
		if record.IsCompleted() {
			completed[record.ChapterID] = true
		}
	}

	byUnit := map[uint][]models.Chapter{}
	unitOrder := make([]uint, 0)
	for _, chapter := range chapters {
		if _, seen := byUnit[chapter.UnitID]; !seen {
			unitOrder = append(unitOrder, chapter.UnitID)
		}
		byUnit[chapter.UnitID] = append(byUnit[chapter.UnitID], chapter)
	}

	summary := dto.StudentSummary{TotalChapters: len(chapters)}
	views := make([]dto.ChapterProgressView, 0, len(chapters))

	for _, unitID := range unitOrder {
		siblings := byUnit[unitID]
		for index, chapter := range siblings {
			view := dto.ChapterProgressView{
				ChapterID: chapter.ID,
				UnitID:    chapter.UnitID,
				Title:     chapter.Title,
				State:     models.ProgressLocked,
			}

			if record, ok := recordByChapter[chapter.ID]; ok {
				view.State = record.State
				view.Score = record.Score
				view.StartedAt = record.StartedAt
				view.CompletedAt = record.CompletedAt

				switch record.State {
				case models.ProgressCompleted:
					summary.Completed++
				case models.ProgressInProgress:
					summary.InProgress++
				}
			} else if AccessibleAt(siblings, index, completed) {
				view.State = models.ProgressAccessible
			}

			views = append(views, view)
		}
	}

	summary.CompletionRate = percent(summary.Completed, summary.TotalChapters)
	summary.AverageScore = summariseScores(collectScores(records)).Average

	return dto.StudentDashboardResponse{
		Summary:  summary,
		Chapters: views,
	}
}

func collectScores(records []models.ChapterProgress) []int {
	scores := make([]int, 0, len(records))
	for _, record := range records {
		if record.IsCompleted() && record.Score != nil {
			scores = append(scores, *record.Score)
		}
	}
	return scores
}

func (s *dashboardService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to read dashboard cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		return false
	}

	s.logger.Debug().Str("cache_key", key).Msg("dashboard cache hit")

	return true
}

func (s *dashboardService) writeCache(ctx context.Context, key string, payload interface{}) {
	if s.cache == nil {
		return
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, encoded, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to store dashboard cache")
	}
}
