package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/models"
)

// ChapterRepository defines data operations for chapters and their ordering.
type ChapterRepository interface {
	GetByID(ctx context.Context, id uint) (models.Chapter, error)
	ListByUnit(ctx context.Context, unitID uint) ([]models.Chapter, error)
	ListByClass(ctx context.Context, classID uint) ([]models.Chapter, error)
	CountByClass(ctx context.Context, classID uint) (int64, error)
	Create(ctx context.Context, chapter *models.Chapter) error
	UpdateQuestions(ctx context.Context, id uint, questions datatypes.JSON) error
	Delete(ctx context.Context, id uint) error
}

type chapterRepository struct {
	db *gorm.DB
}

// NewChapterRepository instantiates the repository.
func NewChapterRepository(db *gorm.DB) ChapterRepository {
	return &chapterRepository{db: db}
}

func (r *chapterRepository) GetByID(ctx context.Context, id uint) (models.Chapter, error) {
	var chapter models.Chapter
	if err := r.db.WithContext(ctx).Preload("Unit").First(&chapter, id).Error; err != nil {
		return models.Chapter{}, err
	}

	return chapter, nil
}

// ListByUnit returns the unit's chapters in sequence order. This ordering is
// what the sequence resolver reasons over.
func (r *chapterRepository) ListByUnit(ctx context.Context, unitID uint) ([]models.Chapter, error) {
	var chapters []models.Chapter
	err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("position ASC").
		Find(&chapters).Error
	if err != nil {
		return nil, err
	}

	return chapters, nil
}

func (r *chapterRepository) ListByClass(ctx context.Context, classID uint) ([]models.Chapter, error) {
	var chapters []models.Chapter
	err := r.db.WithContext(ctx).
		Joins("JOIN units ON units.id = chapters.unit_id").
		Where("units.class_id = ?", classID).
		Order("units.position ASC, chapters.position ASC").
		Find(&chapters).Error
	if err != nil {
		return nil, err
	}

	return chapters, nil
}

func (r *chapterRepository) CountByClass(ctx context.Context, classID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Joins("JOIN units ON units.id = chapters.unit_id").
		Where("units.class_id = ?", classID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *chapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	return r.db.WithContext(ctx).Create(chapter).Error
}

func (r *chapterRepository) UpdateQuestions(ctx context.Context, id uint, questions datatypes.JSON) error {
	result := r.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Where("id = ?", id).
		Update("questions", questions)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Delete removes the chapter together with its progress records in one
// transaction, so a deleted chapter can never leave orphaned progress.
func (r *chapterRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chapter_id = ?", id).Delete(&models.ChapterProgress{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Chapter{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}
