package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/models"
)

// ProgressRepository is the durable store for chapter progress records,
// always scoped by the composite (chapter, student) identity.
type ProgressRepository interface {
	Get(ctx context.Context, chapterID, studentID uint) (*models.ChapterProgress, error)
	Upsert(ctx context.Context, chapterID, studentID uint, mutate func(*models.ChapterProgress)) (models.ChapterProgress, error)
	ListByChapter(ctx context.Context, chapterID uint) ([]models.ChapterProgress, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.ChapterProgress, error)
	ListByClass(ctx context.Context, classID uint) ([]models.ChapterProgress, error)
	ListActiveSince(ctx context.Context, since time.Time, classID *uint) ([]models.ChapterProgress, error)
	DeleteForStudent(ctx context.Context, studentID uint) error
	DeleteForChapter(ctx context.Context, chapterID uint) error
}

type progressKey struct {
	chapterID uint
	studentID uint
}

type progressRepository struct {
	db *gorm.DB

	// Per-key locks serialize read-modify-write cycles for the same
	// (chapter, student) pair so concurrent Start/Submit calls can never
	// interleave into a half-written record. The unique index on the pair
	// is the cross-process backstop.
	mu    sync.Mutex
	locks map[progressKey]*sync.Mutex
}

// NewProgressRepository instantiates the progress store.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{
		db:    db,
		locks: make(map[progressKey]*sync.Mutex),
	}
}

func (r *progressRepository) keyLock(key progressKey) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}

	return lock
}

// Get returns the record for the pair, or nil when the student has not
// touched the chapter yet. Absence is not an error.
func (r *progressRepository) Get(ctx context.Context, chapterID, studentID uint) (*models.ChapterProgress, error) {
	var record models.ChapterProgress
	err := r.db.WithContext(ctx).
		Where("chapter_id = ? AND student_id = ?", chapterID, studentID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &record, nil
}

// Upsert applies the mutation to the existing record, or to a fresh one in
// the default accessible state, and persists the result atomically.
func (r *progressRepository) Upsert(ctx context.Context, chapterID, studentID uint, mutate func(*models.ChapterProgress)) (models.ChapterProgress, error) {
	lock := r.keyLock(progressKey{chapterID: chapterID, studentID: studentID})
	lock.Lock()
	defer lock.Unlock()

	var record models.ChapterProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("chapter_id = ? AND student_id = ?", chapterID, studentID).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = models.ChapterProgress{
				ChapterID: chapterID,
				StudentID: studentID,
				State:     models.ProgressAccessible,
			}
		} else if err != nil {
			return err
		}

		mutate(&record)

		return tx.Save(&record).Error
	})
	if err != nil {
		return models.ChapterProgress{}, err
	}

	return record, nil
}

func (r *progressRepository) ListByChapter(ctx context.Context, chapterID uint) ([]models.ChapterProgress, error) {
	var records []models.ChapterProgress
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("chapter_id = ?", chapterID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *progressRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.ChapterProgress, error) {
	var records []models.ChapterProgress
	err := r.db.WithContext(ctx).
		Preload("Chapter").
		Where("student_id = ?", studentID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *progressRepository) ListByClass(ctx context.Context, classID uint) ([]models.ChapterProgress, error) {
	var records []models.ChapterProgress
	err := r.db.WithContext(ctx).
		Joins("JOIN chapters ON chapters.id = chapter_progresses.chapter_id").
		Joins("JOIN units ON units.id = chapters.unit_id").
		Where("units.class_id = ?", classID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

// ListActiveSince returns records whose start or completion timestamp falls
// after the cutoff, optionally scoped to one class.
func (r *progressRepository) ListActiveSince(ctx context.Context, since time.Time, classID *uint) ([]models.ChapterProgress, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ChapterProgress{}).
		Where("started_at >= ? OR completed_at >= ?", since, since)

	if classID != nil {
		query = query.
			Joins("JOIN chapters ON chapters.id = chapter_progresses.chapter_id").
			Joins("JOIN units ON units.id = chapters.unit_id").
			Where("units.class_id = ?", *classID)
	}

	var records []models.ChapterProgress
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteForStudent removes every record belonging to the student across all
// chapters. Runs in one transaction; a partial cascade is never left behind.
func (r *progressRepository) DeleteForStudent(ctx context.Context, studentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("student_id = ?", studentID).
			Delete(&models.ChapterProgress{}).Error
	})
}

// DeleteForChapter removes every record attached to the chapter.
func (r *progressRepository) DeleteForChapter(ctx context.Context, chapterID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("chapter_id = ?", chapterID).
			Delete(&models.ChapterProgress{}).Error
	})
}
