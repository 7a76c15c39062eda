package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/models"
)

// AttendanceRepository exposes the read-side queries the analytics engine
// needs over attendance marks.
type AttendanceRepository interface {
	ListForStudentSince(ctx context.Context, studentID uint, since time.Time) ([]models.Attendance, error)
	ListForClassSince(ctx context.Context, classID uint, since time.Time) ([]models.Attendance, error)
	Create(ctx context.Context, attendance *models.Attendance) error
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates the repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) ListForStudentSince(ctx context.Context, studentID uint, since time.Time) ([]models.Attendance, error) {
	var records []models.Attendance
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND date >= ?", studentID, since).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) ListForClassSince(ctx context.Context, classID uint, since time.Time) ([]models.Attendance, error) {
	var records []models.Attendance
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND date >= ?", classID, since).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	return r.db.WithContext(ctx).Create(attendance).Error
}
