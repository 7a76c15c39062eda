package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/repository"
)

// RosterService handles the deletion notifications the progress core must
// react to: a removed student or chapter takes every progress record keyed
// by it along, atomically.
type RosterService interface {
	RemoveStudent(ctx context.Context, studentID uint, actor Actor) error
	RemoveChapter(ctx context.Context, chapterID uint, actor Actor) error
}

type rosterService struct {
	students repository.StudentRepository
	chapters repository.ChapterRepository
	logger   zerolog.Logger
}

// NewRosterService builds the cascade handler.
func NewRosterService(students repository.StudentRepository, chapters repository.ChapterRepository, logger zerolog.Logger) RosterService {
	return &rosterService{
		students: students,
		chapters: chapters,
		logger:   logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) RemoveStudent(ctx context.Context, studentID uint, actor Actor) error {
	if !actor.IsAdmin() {
		return ErrNotRecordOwner
	}

	if err := s.students.Delete(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	s.logger.Info().Uint("student_id", studentID).Msg("student removed with full cascade")

	return nil
}

func (s *rosterService) RemoveChapter(ctx context.Context, chapterID uint, actor Actor) error {
	if !actor.IsStaff() {
		return ErrNotRecordOwner
	}

	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChapterNotFound
		}
		return err
	}

	if !actor.IsAdmin() && chapter.TeacherID != actor.ID {
		return ErrNotChapterOwner
	}

	if err := s.chapters.Delete(ctx, chapterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChapterNotFound
		}
		return err
	}

	s.logger.Info().Uint("chapter_id", chapterID).Msg("chapter removed with progress cascade")

	return nil
}
