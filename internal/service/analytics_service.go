package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/config"
	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/repository"
)

// ErrClassNotFound indicates the referenced class does not exist.
var ErrClassNotFound = errors.New("class not found")

// ErrTeacherNotFound indicates the acting teacher has no record.
var ErrTeacherNotFound = errors.New("teacher not found")

// ErrNotClassOwner indicates the class is outside the teacher's home class.
var ErrNotClassOwner = errors.New("class belongs to another teacher")

// AnalyticsService computes the read-side rollups over progress, attendance
// and submission records. Every result is recomputed on demand; nothing is
// materialized.
type AnalyticsService interface {
	AuthorizeClass(ctx context.Context, classID uint, actor Actor) error
	CompletionStats(ctx context.Context, chapterID uint) (dto.CompletionStats, error)
	SyllabusCoverage(ctx context.Context, classID *uint) ([]dto.ClassCoverage, error)
	WeeklyActiveStudents(ctx context.Context, classID *uint) (dto.ActiveStudents, error)
	StrugglingStudents(ctx context.Context, classID uint) ([]dto.StrugglingStudent, error)
	TopPerformers(ctx context.Context, chapterID uint, limit int) ([]dto.TopPerformer, error)
	PendingGradings(ctx context.Context, teacherID uint, classID *uint) ([]dto.PendingGrading, error)
}

type analyticsService struct {
	chapters    repository.ChapterRepository
	classes     repository.ClassRepository
	students    repository.StudentRepository
	teachers    repository.TeacherRepository
	progress    repository.ProgressRepository
	attendance  repository.AttendanceRepository
	assignments repository.AssignmentRepository
	cfg         config.AnalyticsConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAnalyticsService constructs the analytics engine with its thresholds.
func NewAnalyticsService(
	chapters repository.ChapterRepository,
	classes repository.ClassRepository,
	students repository.StudentRepository,
	teachers repository.TeacherRepository,
	progress repository.ProgressRepository,
	attendance repository.AttendanceRepository,
	assignments repository.AssignmentRepository,
	cfg config.AnalyticsConfig,
	logger zerolog.Logger,
) AnalyticsService {
	return &analyticsService{
		chapters:    chapters,
		classes:     classes,
		students:    students,
		teachers:    teachers,
		progress:    progress,
		attendance:  attendance,
		assignments: assignments,
		cfg:         cfg,
		logger:      logger.With().Str("component", "analytics_service").Logger(),
		now:         time.Now,
	}
}

// AuthorizeClass checks the actor's standing over class-level metrics.
// Admins see every class; a teacher only their home class. Class-scoped
// results name other students, so the check runs before any computation.
func (s *analyticsService) AuthorizeClass(ctx context.Context, classID uint, actor Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role != models.RoleTeacher {
		return ErrNotRecordOwner
	}

	teacher, err := s.teachers.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeacherNotFound
		}
		return err
	}

	if teacher.ClassID != classID {
		return ErrNotClassOwner
	}

	return nil
}

// CompletionStats rolls the chapter's progress records up into status
// counts, a completion rate and score statistics.
func (s *analyticsService) CompletionStats(ctx context.Context, chapterID uint) (dto.CompletionStats, error) {
	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompletionStats{}, ErrChapterNotFound
		}
		return dto.CompletionStats{}, err
	}

	totalStudents, err := s.students.CountByClass(ctx, chapter.Unit.ClassID)
	if err != nil {
		return dto.CompletionStats{}, err
	}

	records, err := s.progress.ListByChapter(ctx, chapterID)
	if err != nil {
		return dto.CompletionStats{}, err
	}

	statusCounts := map[string]int{
		models.ProgressLocked:     0,
		models.ProgressAccessible: 0,
		models.ProgressInProgress: 0,
		models.ProgressCompleted:  0,
	}

	var scores []int
	for _, record := range records {
		if models.ValidProgressState(record.State) {
			statusCounts[record.State]++
		}
		if record.IsCompleted() && record.Score != nil {
			scores = append(scores, *record.Score)
		}
	}

	return dto.CompletionStats{
		ChapterID:      chapterID,
		TotalStudents:  int(totalStudents),
		StatusCounts:   statusCounts,
		CompletionRate: percent(statusCounts[models.ProgressCompleted], int(totalStudents)),
		Scores:         summariseScores(scores),
	}, nil
}

// SyllabusCoverage reports, per class, completed (chapter, student) pairs
// against the full chapter x student grid. A nil classID covers all classes
// (the admin view).
func (s *analyticsService) SyllabusCoverage(ctx context.Context, classID *uint) ([]dto.ClassCoverage, error) {
	tracer := otel.Tracer("github.com/arka-edu/arka-api/internal/service/analytics")
	ctx, span := tracer.Start(ctx, "analytics.syllabus_coverage")
	defer span.End()

	var classes []models.Class
	if classID != nil {
		class, err := s.classes.GetByID(ctx, *classID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				span.SetStatus(codes.Error, "class_not_found")
				return nil, ErrClassNotFound
			}
			span.RecordError(err)
			return nil, err
		}
		classes = []models.Class{class}
	} else {
		all, err := s.classes.List(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		classes = all
	}

	coverage := make([]dto.ClassCoverage, 0, len(classes))
	for _, class := range classes {
		entry, err := s.classCoverage(ctx, class)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		coverage = append(coverage, entry)
	}

	span.SetAttributes(attribute.Int("analytics.class_count", len(coverage)))

	return coverage, nil
}

func (s *analyticsService) classCoverage(ctx context.Context, class models.Class) (dto.ClassCoverage, error) {
	totalChapters, err := s.chapters.CountByClass(ctx, class.ID)
	if err != nil {
		return dto.ClassCoverage{}, err
	}

	totalStudents, err := s.students.CountByClass(ctx, class.ID)
	if err != nil {
		return dto.ClassCoverage{}, err
	}

	records, err := s.progress.ListByClass(ctx, class.ID)
	if err != nil {
		return dto.ClassCoverage{}, err
	}

	completions := 0
	for _, record := range records {
		if record.IsCompleted() {
			completions++
		}
	}

	return dto.ClassCoverage{
		ClassID:            class.ID,
		ClassName:          class.Name,
		TotalChapters:      int(totalChapters),
		TotalStudents:      int(totalStudents),
		ActualCompletions:  completions,
		CoveragePercentage: percent(completions, int(totalChapters)*int(totalStudents)),
	}, nil
}

// WeeklyActiveStudents counts distinct students whose records were started
// or completed within the configured activity window.
func (s *analyticsService) WeeklyActiveStudents(ctx context.Context, classID *uint) (dto.ActiveStudents, error) {
	since := s.now().Add(-s.cfg.ActivityWindow)

	records, err := s.progress.ListActiveSince(ctx, since, classID)
	if err != nil {
		return dto.ActiveStudents{}, err
	}

	seen := make(map[uint]struct{}, len(records))
	for _, record := range records {
		seen[record.StudentID] = struct{}{}
	}

	return dto.ActiveStudents{
		WindowDays: int(s.cfg.ActivityWindow.Hours() / 24),
		Count:      len(seen),
	}, nil
}

// StrugglingStudents applies the at-risk heuristic across a class:
// attendance below the configured floor, average completed score below the
// configured floor, or too many missing submissions against active
// assignments. Each flagged student carries the issues that tripped.
func (s *analyticsService) StrugglingStudents(ctx context.Context, classID uint) ([]dto.StrugglingStudent, error) {
	tracer := otel.Tracer("github.com/arka-edu/arka-api/internal/service/analytics")
	ctx, span := tracer.Start(ctx, "analytics.struggling_students")
	span.SetAttributes(attribute.Int64("analytics.class_id", int64(classID)))
	defer span.End()

	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "class_not_found")
			return nil, ErrClassNotFound
		}
		span.RecordError(err)
		return nil, err
	}

	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now()
	attendance, err := s.attendance.ListForClassSince(ctx, classID, now.Add(-s.cfg.AttendanceWindow))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	attended := map[uint][2]int{} // studentID -> {present, total}
	for _, mark := range attendance {
		counts := attended[mark.StudentID]
		if mark.Present {
			counts[0]++
		}
		counts[1]++
		attended[mark.StudentID] = counts
	}

	records, err := s.progress.ListByClass(ctx, classID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	scoresByStudent := map[uint][]int{}
	for _, record := range records {
		if record.IsCompleted() && record.Score != nil {
			scoresByStudent[record.StudentID] = append(scoresByStudent[record.StudentID], *record.Score)
		}
	}

	assignments, err := s.assignments.ListActiveByClass(ctx, classID, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	assignmentIDs := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		assignmentIDs = append(assignmentIDs, assignment.ID)
	}

	submissions, err := s.assignments.ListSubmissionsForAssignments(ctx, assignmentIDs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	submitted := map[[2]uint]struct{}{} // (assignmentID, studentID)
	for _, submission := range submissions {
		submitted[[2]uint{submission.AssignmentID, submission.StudentID}] = struct{}{}
	}

	flagged := make([]dto.StrugglingStudent, 0)
	for _, student := range students {
		attendanceRate := 100 // no records counts as fully present
		if counts := attended[student.ID]; counts[1] > 0 {
			attendanceRate = percent(counts[0], counts[1])
		}

		averageScore := summariseScores(scoresByStudent[student.ID]).Average

		missing := 0
		for _, assignment := range assignments {
			if _, ok := submitted[[2]uint{assignment.ID, student.ID}]; !ok {
				missing++
			}
		}

		var issues []string
		if attendanceRate < s.cfg.AttendanceRateMin {
			issues = append(issues, dto.IssueLowAttendance)
		}
		if averageScore < s.cfg.AverageScoreMin {
			issues = append(issues, dto.IssueLowScores)
		}
		if missing > s.cfg.MissingSubmissionsMax {
			issues = append(issues, dto.IssueMissingSubmissions)
		}

		if len(issues) == 0 {
			continue
		}

		flagged = append(flagged, dto.StrugglingStudent{
			StudentID:          student.ID,
			Name:               student.Name,
			AttendanceRate:     attendanceRate,
			AverageScore:       averageScore,
			MissingSubmissions: missing,
			Issues:             issues,
		})
	}

	span.SetAttributes(
		attribute.Int("analytics.students_checked", len(students)),
		attribute.Int("analytics.students_flagged", len(flagged)),
	)

	return flagged, nil
}

// TopPerformers ranks the chapter's completed records by score, descending.
func (s *analyticsService) TopPerformers(ctx context.Context, chapterID uint, limit int) ([]dto.TopPerformer, error) {
	if _, err := s.chapters.GetByID(ctx, chapterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}

	records, err := s.progress.ListByChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	completed := make([]models.ChapterProgress, 0, len(records))
	for _, record := range records {
		if record.IsCompleted() && record.Score != nil {
			completed = append(completed, record)
		}
	}

	sort.SliceStable(completed, func(i, j int) bool {
		if *completed[i].Score != *completed[j].Score {
			return *completed[i].Score > *completed[j].Score
		}
		return completed[i].StudentID < completed[j].StudentID
	})

	if limit <= 0 {
		limit = 10
	}
	if limit > len(completed) {
		limit = len(completed)
	}

	performers := make([]dto.TopPerformer, 0, limit)
	for _, record := range completed[:limit] {
		performers = append(performers, dto.TopPerformer{
			StudentID:   record.StudentID,
			Name:        record.Student.Name,
			Score:       *record.Score,
			CompletedAt: record.CompletedAt,
		})
	}

	return performers, nil
}

// PendingGradings lists the teacher's ungraded submissions grouped by
// assignment, oldest submissions first.
func (s *analyticsService) PendingGradings(ctx context.Context, teacherID uint, classID *uint) ([]dto.PendingGrading, error) {
	submissions, err := s.assignments.ListUngradedByTeacher(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}

	grouped := map[uint]*dto.PendingGrading{}
	order := make([]uint, 0)
	for _, submission := range submissions {
		entry, ok := grouped[submission.AssignmentID]
		if !ok {
			entry = &dto.PendingGrading{
				AssignmentID:    submission.AssignmentID,
				AssignmentTitle: submission.Assignment.Title,
				DueDate:         submission.Assignment.DueDate,
			}
			grouped[submission.AssignmentID] = entry
			order = append(order, submission.AssignmentID)
		}

		entry.Submissions = append(entry.Submissions, dto.PendingSubmission{
			SubmissionID: submission.ID,
			StudentID:    submission.StudentID,
			StudentName:  submission.Student.Name,
			SubmittedAt:  submission.CreatedAt,
		})
	}

	result := make([]dto.PendingGrading, 0, len(order))
	for _, assignmentID := range order {
		result = append(result, *grouped[assignmentID])
	}

	return result, nil
}

// percent computes an integer-rounded percentage. A zero or negative
// denominator yields 0, never an error.
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}

	return int(math.Round(100 * float64(part) / float64(total)))
}

// summariseScores averages defined scores with simple arithmetic mean; an
// empty set yields zeros.
func summariseScores(scores []int) dto.ScoreStats {
	if len(scores) == 0 {
		return dto.ScoreStats{}
	}

	sum := 0
	minScore := scores[0]
	maxScore := scores[0]
	for _, score := range scores {
		sum += score
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}

	return dto.ScoreStats{
		Average: int(math.Round(float64(sum) / float64(len(scores)))),
		Min:     minScore,
		Max:     maxScore,
		Count:   len(scores),
	}
}
