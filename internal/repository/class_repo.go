package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/models"
)

// ClassRepository defines lookups over classes and their units.
type ClassRepository interface {
	GetByID(ctx context.Context, id uint) (models.Class, error)
	List(ctx context.Context) ([]models.Class, error)
	ListUnits(ctx context.Context, classID uint) ([]models.Unit, error)
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository instantiates the repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}

	return class, nil
}

func (r *classRepository) List(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&classes).Error; err != nil {
		return nil, err
	}

	return classes, nil
}

func (r *classRepository) ListUnits(ctx context.Context, classID uint) ([]models.Unit, error) {
	var units []models.Unit
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("position ASC").
		Find(&units).Error
	if err != nil {
		return nil, err
	}

	return units, nil
}
