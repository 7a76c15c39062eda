package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/models"
)

// AssignmentRepository defines the assignment and submission queries the
// analytics engine consumes.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListActiveByClass(ctx context.Context, classID uint, now time.Time) ([]models.Assignment, error)
	ListSubmissionsForAssignments(ctx context.Context, assignmentIDs []uint) ([]models.Submission, error)
	ListUngradedByTeacher(ctx context.Context, teacherID uint, classID *uint) ([]models.Submission, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	CreateSubmission(ctx context.Context, submission *models.Submission) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) ListActiveByClass(ctx context.Context, classID uint, now time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND due_date > ?", classID, now).
		Order("due_date ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ListSubmissionsForAssignments(ctx context.Context, assignmentIDs []uint) ([]models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}

	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("assignment_id IN ?", assignmentIDs).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListUngradedByTeacher returns submissions without a score for assignments
// the teacher owns, optionally narrowed to one class.
func (r *assignmentRepository) ListUngradedByTeacher(ctx context.Context, teacherID uint, classID *uint) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student").
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("assignments.teacher_id = ?", teacherID).
		Where("submissions.score IS NULL")

	if classID != nil {
		query = query.Where("assignments.class_id = ?", *classID)
	}

	var submissions []models.Submission
	if err := query.Order("submissions.created_at ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}
