package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/models"
)

func setupTestDB(t *testing.T, name string, entities ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

func seedProgressFixtures(t *testing.T, db *gorm.DB) (models.Class, models.Unit, []models.Chapter, []models.Student) {
	t.Helper()

	class := models.Class{Name: "7A", Level: "7"}
	require.NoError(t, db.Create(&class).Error)

	unit := models.Unit{ClassID: class.ID, Title: "Algebra", Position: 1}
	require.NoError(t, db.Create(&unit).Error)

	teacher := models.Teacher{Name: "Bu Sari", Email: "sari@school.test", ClassID: class.ID}
	require.NoError(t, db.Create(&teacher).Error)

	chapters := []models.Chapter{
		{UnitID: unit.ID, TeacherID: teacher.ID, Title: "Variables", Position: 1, RequiresPrevious: true},
		{UnitID: unit.ID, TeacherID: teacher.ID, Title: "Equations", Position: 2, RequiresPrevious: true},
	}
	for i := range chapters {
		require.NoError(t, db.Create(&chapters[i]).Error)
	}

	students := []models.Student{
		{Name: "Andi", Email: "andi@school.test", ClassID: class.ID},
		{Name: "Budi", Email: "budi@school.test", ClassID: class.ID},
	}
	for i := range students {
		require.NoError(t, db.Create(&students[i]).Error)
	}

	return class, unit, chapters, students
}

func TestProgressRepositoryGetReturnsNilOnAbsence(t *testing.T) {
	db := setupTestDB(t, "progress_get", &models.Class{}, &models.Unit{}, &models.Teacher{}, &models.Chapter{}, &models.Student{}, &models.ChapterProgress{})
	repo := NewProgressRepository(db)

	record, err := repo.Get(context.Background(), 42, 7)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestProgressRepositoryUpsertCreatesAndUpdatesSingleRecord(t *testing.T) {
	db := setupTestDB(t, "progress_upsert", &models.Class{}, &models.Unit{}, &models.Teacher{}, &models.Chapter{}, &models.Student{}, &models.ChapterProgress{})
	repo := NewProgressRepository(db)
	_, _, chapters, students := seedProgressFixtures(t, db)

	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	record, err := repo.Upsert(ctx, chapters[0].ID, students[0].ID, func(r *models.ChapterProgress) {
		r.State = models.ProgressInProgress
		r.StartedAt = &started
	})
	require.NoError(t, err)
	require.Equal(t, models.ProgressInProgress, record.State)
	require.NotZero(t, record.ID)

	score := 85
	record, err = repo.Upsert(ctx, chapters[0].ID, students[0].ID, func(r *models.ChapterProgress) {
		r.State = models.ProgressCompleted
		r.Score = &score
	})
	require.NoError(t, err)
	require.Equal(t, models.ProgressCompleted, record.State)
	require.NotNil(t, record.StartedAt)

	var count int64
	require.NoError(t, db.Model(&models.ChapterProgress{}).
		Where("chapter_id = ? AND student_id = ?", chapters[0].ID, students[0].ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count, "repeated upserts must keep a single record per pair")
}

func TestProgressRepositoryUpsertSerializesConcurrentWriters(t *testing.T) {
	db := setupTestDB(t, "progress_concurrent", &models.Class{}, &models.Unit{}, &models.Teacher{}, &models.Chapter{}, &models.Student{}, &models.ChapterProgress{})
	repo := NewProgressRepository(db)
	_, _, chapters, students := seedProgressFixtures(t, db)

	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Upsert(ctx, chapters[0].ID, students[0].ID, func(r *models.ChapterProgress) {
				r.State = models.ProgressInProgress
			})
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&models.ChapterProgress{}).
		Where("chapter_id = ? AND student_id = ?", chapters[0].ID, students[0].ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestProgressRepositoryListActiveSinceFiltersByCutoff(t *testing.T) {
	db := setupTestDB(t, "progress_active", &models.Class{}, &models.Unit{}, &models.Teacher{}, &models.Chapter{}, &models.Student{}, &models.ChapterProgress{})
	repo := NewProgressRepository(db)
	class, _, chapters, students := seedProgressFixtures(t, db)

	now := time.Now().UTC()
	recent := now.Add(-time.Hour)
	stale := now.Add(-30 * 24 * time.Hour)

	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[0].ID, StudentID: students[0].ID,
		State: models.ProgressInProgress, StartedAt: &recent,
	}).Error)
	require.NoError(t, db.Create(&models.ChapterProgress{
		ChapterID: chapters[1].ID, StudentID: students[1].ID,
		State: models.ProgressCompleted, StartedAt: &stale, CompletedAt: &stale,
	}).Error)

	records, err := repo.ListActiveSince(context.Background(), now.Add(-7*24*time.Hour), &class.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, students[0].ID, records[0].StudentID)
}

func TestProgressRepositoryDeleteForStudentRemovesOnlyTheirRecords(t *testing.T) {
	db := setupTestDB(t, "progress_delete", &models.Class{}, &models.Unit{}, &models.Teacher{}, &models.Chapter{}, &models.Student{}, &models.ChapterProgress{})
	repo := NewProgressRepository(db)
	_, _, chapters, students := seedProgressFixtures(t, db)

	for _, chapter := range chapters {
		for _, student := range students {
			require.NoError(t, db.Create(&models.ChapterProgress{
				ChapterID: chapter.ID, StudentID: student.ID, State: models.ProgressAccessible,
			}).Error)
		}
	}

	require.NoError(t, repo.DeleteForStudent(context.Background(), students[0].ID))

	var remaining []models.ChapterProgress
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, len(chapters))
	for _, record := range remaining {
		require.Equal(t, students[1].ID, record.StudentID)
	}
}
