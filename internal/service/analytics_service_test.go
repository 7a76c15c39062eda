package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/config"
	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/repository"
)

func setupServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Class{}, &models.Unit{}, &models.Teacher{}, &models.Chapter{},
		&models.Student{}, &models.ChapterProgress{}, &models.Attendance{},
		&models.Assignment{}, &models.Submission{},
	))
	return db
}

func analyticsTestConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		AttendanceRateMin:     75,
		AverageScoreMin:       60,
		MissingSubmissionsMax: 2,
		ActivityWindow:        7 * 24 * time.Hour,
		AttendanceWindow:      30 * 24 * time.Hour,
	}
}

func newAnalyticsService(db *gorm.DB) AnalyticsService {
	return NewAnalyticsService(
		repository.NewChapterRepository(db),
		repository.NewClassRepository(db),
		repository.NewStudentRepository(db),
		repository.NewTeacherRepository(db),
		repository.NewProgressRepository(db),
		repository.NewAttendanceRepository(db),
		repository.NewAssignmentRepository(db),
		analyticsTestConfig(),
		zerolog.Nop(),
	)
}

func intPointer(v int) *int {
	return &v
}

func TestAnalyticsCompletionStats(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_stats")
	svc := newAnalyticsService(db)

	class := models.Class{Name: "7A"}
	require.NoError(t, db.Create(&class).Error)
	unit := models.Unit{ClassID: class.ID, Title: "Algebra", Position: 1}
	require.NoError(t, db.Create(&unit).Error)
	chapter := models.Chapter{UnitID: unit.ID, TeacherID: 1, Title: "Variables", Position: 1}
	require.NoError(t, db.Create(&chapter).Error)

	students := make([]models.Student, 4)
	for i := range students {
		students[i] = models.Student{Name: "Student", Email: "stats" + string(rune('a'+i)) + "@school.test", ClassID: class.ID}
		require.NoError(t, db.Create(&students[i]).Error)
	}

	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapter.ID, StudentID: students[0].ID,
		State: models.ProgressCompleted, Score: intPointer(80), CompletedAt: &now,
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapter.ID, StudentID: students[1].ID,
		State: models.ProgressCompleted, Score: intPointer(90), CompletedAt: &now,
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapter.ID, StudentID: students[2].ID,
		State: models.ProgressInProgress, StartedAt: &now,
	}).Error)

	stats, err := svc.CompletionStats(context.Background(), chapter.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stats.TotalStudents)
	require.Equal(t, 2, stats.StatusCounts[models.ProgressCompleted])
	require.Equal(t, 1, stats.StatusCounts[models.ProgressInProgress])
	require.Equal(t, 0, stats.StatusCounts[models.ProgressLocked])
	require.Equal(t, 50, stats.CompletionRate)
	require.Equal(t, dto.ScoreStats{Average: 85, Min: 80, Max: 90, Count: 2}, stats.Scores)

	_, err = svc.CompletionStats(context.Background(), 9999)
	require.ErrorIs(t, err, ErrChapterNotFound)
}

func TestAnalyticsCompletionStatsNoStudents(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_stats_empty")
	svc := newAnalyticsService(db)

	class := models.Class{Name: "7Z"}
	require.NoError(t, db.Create(&class).Error)
	unit := models.Unit{ClassID: class.ID, Title: "Algebra", Position: 1}
	require.NoError(t, db.Create(&unit).Error)
	chapter := models.Chapter{UnitID: unit.ID, TeacherID: 1, Title: "Variables", Position: 1}
	require.NoError(t, db.Create(&chapter).Error)

	stats, err := svc.CompletionStats(context.Background(), chapter.ID)
	require.NoError(t, err)
	require.Zero(t, stats.TotalStudents)
	require.Zero(t, stats.CompletionRate, "an empty class never divides by zero")
	require.Equal(t, dto.ScoreStats{}, stats.Scores)
}

func TestAnalyticsAuthorizeClass(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_authorize")
	svc := newAnalyticsService(db)

	home := models.Class{Name: "7G"}
	other := models.Class{Name: "7H"}
	require.NoError(t, db.Create(&home).Error)
	require.NoError(t, db.Create(&other).Error)
	teacher := models.Teacher{Name: "Bu Sari", Email: "sari.auth@school.test", ClassID: home.ID}
	require.NoError(t, db.Create(&teacher).Error)

	ctx := context.Background()

	require.NoError(t, svc.AuthorizeClass(ctx, home.ID, Actor{ID: teacher.ID, Role: models.RoleTeacher}))
	require.NoError(t, svc.AuthorizeClass(ctx, other.ID, Actor{ID: 500, Role: models.RoleAdmin}))

	err := svc.AuthorizeClass(ctx, other.ID, Actor{ID: teacher.ID, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrNotClassOwner, "a teacher only reads their home class")

	err = svc.AuthorizeClass(ctx, home.ID, Actor{ID: 9999, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrTeacherNotFound)

	err = svc.AuthorizeClass(ctx, home.ID, Actor{ID: 1, Role: models.RoleStudent})
	require.ErrorIs(t, err, ErrNotRecordOwner)
}

func TestAnalyticsSyllabusCoverage(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_coverage")
	svc := newAnalyticsService(db)

	class := models.Class{Name: "8B"}
	require.NoError(t, db.Create(&class).Error)
	unit := models.Unit{ClassID: class.ID, Title: "Geometry", Position: 1}
	require.NoError(t, db.Create(&unit).Error)

	chapters := make([]models.Chapter, 2)
	for i := range chapters {
		chapters[i] = models.Chapter{UnitID: unit.ID, TeacherID: 1, Title: "Chapter", Position: i + 1}
		require.NoError(t, db.Create(&chapters[i]).Error)
	}

	students := make([]models.Student, 2)
	for i := range students {
		students[i] = models.Student{Name: "Student", Email: "cov" + string(rune('a'+i)) + "@school.test", ClassID: class.ID}
		require.NoError(t, db.Create(&students[i]).Error)
	}

	// Two completed pairs out of a 2x2 grid.
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[0].ID, StudentID: students[0].ID, State: models.ProgressCompleted,
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[1].ID, StudentID: students[0].ID, State: models.ProgressCompleted,
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[0].ID, StudentID: students[1].ID, State: models.ProgressInProgress,
	}).Error)

	coverage, err := svc.SyllabusCoverage(context.Background(), &class.ID)
	require.NoError(t, err)
	require.Len(t, coverage, 1)
	require.Equal(t, 2, coverage[0].TotalChapters)
	require.Equal(t, 2, coverage[0].TotalStudents)
	require.Equal(t, 2, coverage[0].ActualCompletions)
	require.Equal(t, 50, coverage[0].CoveragePercentage)

	missing := uint(9999)
	_, err = svc.SyllabusCoverage(context.Background(), &missing)
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestAnalyticsWeeklyActiveStudents(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_active")
	svc := newAnalyticsService(db).(*analyticsService)

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	class := models.Class{Name: "9C"}
	require.NoError(t, db.Create(&class).Error)
	unit := models.Unit{ClassID: class.ID, Title: "Biology", Position: 1}
	require.NoError(t, db.Create(&unit).Error)
	chapters := make([]models.Chapter, 2)
	for i := range chapters {
		chapters[i] = models.Chapter{UnitID: unit.ID, TeacherID: 1, Title: "Chapter", Position: i + 1}
		require.NoError(t, db.Create(&chapters[i]).Error)
	}

	students := make([]models.Student, 2)
	for i := range students {
		students[i] = models.Student{Name: "Student", Email: "act" + string(rune('a'+i)) + "@school.test", ClassID: class.ID}
		require.NoError(t, db.Create(&students[i]).Error)
	}

	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-14 * 24 * time.Hour)

	// Two recent records for the same student count once.
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[0].ID, StudentID: students[0].ID, State: models.ProgressCompleted,
		StartedAt: &recent, CompletedAt: &recent,
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[1].ID, StudentID: students[0].ID, State: models.ProgressInProgress,
		StartedAt: &recent,
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[0].ID, StudentID: students[1].ID, State: models.ProgressCompleted,
		StartedAt: &stale, CompletedAt: &stale,
	}).Error)

	active, err := svc.WeeklyActiveStudents(context.Background(), &class.ID)
	require.NoError(t, err)
	require.Equal(t, 7, active.WindowDays)
	require.Equal(t, 1, active.Count)
}

func TestAnalyticsStrugglingStudents(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_struggling")
	svc := newAnalyticsService(db)

	class := models.Class{Name: "7D"}
	require.NoError(t, db.Create(&class).Error)
	unit := models.Unit{ClassID: class.ID, Title: "History", Position: 1}
	require.NoError(t, db.Create(&unit).Error)
	chapter := models.Chapter{UnitID: unit.ID, TeacherID: 1, Title: "Chapter", Position: 1}
	require.NoError(t, db.Create(&chapter).Error)

	atRisk := models.Student{Name: "Citra", Email: "citra@school.test", ClassID: class.ID}
	healthy := models.Student{Name: "Dewi", Email: "dewi@school.test", ClassID: class.ID}
	require.NoError(t, db.Create(&atRisk).Error)
	require.NoError(t, db.Create(&healthy).Error)

	// 7 of 10 days present: 70% attendance, below the 75% floor.
	for day := 0; day < 10; day++ {
		require.NoError(t, db.Create(&models.Attendance{
			StudentID: atRisk.ID, ClassID: class.ID,
			Date:    time.Now().AddDate(0, 0, -day),
			Present: day < 7,
		}).Error)
	}

	// Both students carry healthy completed scores so only attendance trips.
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapter.ID, StudentID: atRisk.ID, State: models.ProgressCompleted, Score: intPointer(80),
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapter.ID, StudentID: healthy.ID, State: models.ProgressCompleted, Score: intPointer(90),
	}).Error)

	assignment := models.Assignment{ClassID: class.ID, TeacherID: 1, Title: "Essay", DueDate: time.Now().Add(72 * time.Hour)}
	require.NoError(t, db.Create(&assignment).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: assignment.ID, StudentID: atRisk.ID}).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: assignment.ID, StudentID: healthy.ID}).Error)

	flagged, err := svc.StrugglingStudents(context.Background(), class.ID)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.Equal(t, atRisk.ID, flagged[0].StudentID)
	require.Equal(t, 70, flagged[0].AttendanceRate)
	require.Equal(t, 80, flagged[0].AverageScore)
	require.Zero(t, flagged[0].MissingSubmissions)
	require.Equal(t, []string{dto.IssueLowAttendance}, flagged[0].Issues)

	_, err = svc.StrugglingStudents(context.Background(), 9999)
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestAnalyticsTopPerformers(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_performers")
	svc := newAnalyticsService(db)

	class := models.Class{Name: "7E"}
	require.NoError(t, db.Create(&class).Error)
	unit := models.Unit{ClassID: class.ID, Title: "Physics", Position: 1}
	require.NoError(t, db.Create(&unit).Error)
	chapter := models.Chapter{UnitID: unit.ID, TeacherID: 1, Title: "Motion", Position: 1}
	require.NoError(t, db.Create(&chapter).Error)

	students := make([]models.Student, 4)
	for i := range students {
		students[i] = models.Student{Name: "Student", Email: "top" + string(rune('a'+i)) + "@school.test", ClassID: class.ID}
		require.NoError(t, db.Create(&students[i]).Error)
	}

	now := time.Now().UTC()
	scores := []int{90, 90, 75}
	for i, score := range scores {
		require.NoError(t, db.Create(&models.ChapterProgress{
			ChapterID: chapter.ID, StudentID: students[i].ID,
			State: models.ProgressCompleted, Score: intPointer(score), CompletedAt: &now,
		}).Error)
	}
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapter.ID, StudentID: students[3].ID, State: models.ProgressInProgress,
	}).Error)

	performers, err := svc.TopPerformers(context.Background(), chapter.ID, 2)
	require.NoError(t, err)
	require.Len(t, performers, 2)
	require.Equal(t, students[0].ID, performers[0].StudentID, "equal scores break ties by student id")
	require.Equal(t, students[1].ID, performers[1].StudentID)
	require.Equal(t, 90, performers[0].Score)

	all, err := svc.TopPerformers(context.Background(), chapter.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3, "in-progress records never rank")
	require.Equal(t, 75, all[2].Score)
}

func TestAnalyticsPendingGradings(t *testing.T) {
	db := setupServiceTestDB(t, "analytics_gradings")
	svc := newAnalyticsService(db)

	class := models.Class{Name: "7F"}
	require.NoError(t, db.Create(&class).Error)
	teacher := models.Teacher{Name: "Pak Joko", Email: "joko@school.test", ClassID: class.ID}
	require.NoError(t, db.Create(&teacher).Error)

	students := make([]models.Student, 2)
	for i := range students {
		students[i] = models.Student{Name: "Student", Email: "pg" + string(rune('a'+i)) + "@school.test", ClassID: class.ID}
		require.NoError(t, db.Create(&students[i]).Error)
	}

	essay := models.Assignment{ClassID: class.ID, TeacherID: teacher.ID, Title: "Essay", DueDate: time.Now().Add(24 * time.Hour)}
	lab := models.Assignment{ClassID: class.ID, TeacherID: teacher.ID, Title: "Lab Report", DueDate: time.Now().Add(48 * time.Hour)}
	require.NoError(t, db.Create(&essay).Error)
	require.NoError(t, db.Create(&lab).Error)

	require.NoError(t, db.Create(&models.Submission{AssignmentID: essay.ID, StudentID: students[0].ID}).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: essay.ID, StudentID: students[1].ID}).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: lab.ID, StudentID: students[0].ID}).Error)
	require.NoError(t, db.Create(&models.Submission{AssignmentID: lab.ID, StudentID: students[1].ID, Score: intPointer(88)}).Error)

	gradings, err := svc.PendingGradings(context.Background(), teacher.ID, &class.ID)
	require.NoError(t, err)
	require.Len(t, gradings, 2)

	byTitle := map[string]dto.PendingGrading{}
	for _, grading := range gradings {
		byTitle[grading.AssignmentTitle] = grading
	}
	require.Len(t, byTitle["Essay"].Submissions, 2)
	require.Len(t, byTitle["Lab Report"].Submissions, 1, "graded submissions drop out of the queue")

	none, err := svc.PendingGradings(context.Background(), 9999, &class.ID)
	require.NoError(t, err)
	require.Empty(t, none)
}
