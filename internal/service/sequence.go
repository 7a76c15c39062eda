package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/repository"
)

// ErrChapterOrphaned signals a chapter missing from its own unit's ordered
// list. This is a data integrity failure, never a normal "locked" answer.
var ErrChapterOrphaned = errors.New("chapter missing from its unit ordering")

// SequenceResolver answers whether a chapter is reachable for a student
// right now, based on completion of the immediately preceding chapter. It
// persists nothing.
type SequenceResolver struct {
	chapters repository.ChapterRepository
	progress repository.ProgressRepository
	logger   zerolog.Logger
}

// NewSequenceResolver builds the resolver.
func NewSequenceResolver(chapters repository.ChapterRepository, progress repository.ProgressRepository, logger zerolog.Logger) *SequenceResolver {
	return &SequenceResolver{
		chapters: chapters,
		progress: progress,
		logger:   logger.With().Str("component", "sequence_resolver").Logger(),
	}
}

// Accessible reports whether the student may enter the chapter. The first
// chapter of a unit is always reachable; otherwise the predecessor must be
// completed. Chapters with RequiresPrevious disabled skip the gate entirely.
func (r *SequenceResolver) Accessible(ctx context.Context, chapter models.Chapter, studentID uint) (bool, error) {
	if !chapter.RequiresPrevious {
		return true, nil
	}

	siblings, err := r.chapters.ListByUnit(ctx, chapter.UnitID)
	if err != nil {
		return false, err
	}

	index := -1
	for i, sibling := range siblings {
		if sibling.ID == chapter.ID {
			index = i
			break
		}
	}

	if index == -1 {
		r.logger.Error().
			Uint("chapter_id", chapter.ID).
			Uint("unit_id", chapter.UnitID).
			Msg("chapter not present in its own unit ordering")
		return false, ErrChapterOrphaned
	}

	if index == 0 {
		return true, nil
	}

	predecessor := siblings[index-1]
	record, err := r.progress.Get(ctx, predecessor.ID, studentID)
	if err != nil {
		return false, err
	}

	// No record means the predecessor was never started, let alone completed.
	completed := map[uint]bool{}
	if record != nil && record.IsCompleted() {
		completed[predecessor.ID] = true
	}

	return AccessibleAt(siblings, index, completed), nil
}

// AccessibleAt is the pure reachability rule over an ordered sibling list:
// the first chapter is always reachable, gating can be switched off per
// chapter, and otherwise the immediate predecessor must be completed.
func AccessibleAt(siblings []models.Chapter, index int, completed map[uint]bool) bool {
	if index < 0 || index >= len(siblings) {
		return false
	}

	chapter := siblings[index]
	if !chapter.RequiresPrevious || index == 0 {
		return true
	}

	return completed[siblings[index-1].ID]
}
