package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/repository"
)

// ErrChapterNotFound indicates the requested chapter does not exist.
var ErrChapterNotFound = errors.New("chapter not found")

// ErrStudentNotFound indicates the referenced student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// ErrSequenceLocked indicates the previous chapter has not been completed.
var ErrSequenceLocked = errors.New("must complete previous chapters first")

// ErrNotRecordOwner indicates the actor lacks standing for the record.
var ErrNotRecordOwner = errors.New("actor may not access this progress record")

// ErrNotChapterOwner indicates a teacher tried to grade a chapter they do
// not own.
var ErrNotChapterOwner = errors.New("chapter belongs to another teacher")

// ErrEmptyAnswers indicates a submission without any answers.
var ErrEmptyAnswers = errors.New("answers must not be empty")

// ErrNoQuiz indicates a quiz submission against a chapter without questions.
var ErrNoQuiz = errors.New("chapter has no quiz questions")

// ProgressService drives the per-record lifecycle: start, submit with
// answer grading, and instructor override. Transitions only move forward,
// except that re-submitting a completed chapter overwrites the score.
type ProgressService interface {
	Start(ctx context.Context, chapterID uint, actor Actor) (dto.ProgressResponse, error)
	Submit(ctx context.Context, chapterID uint, actor Actor, payload dto.SubmitProgressRequest) (dto.ProgressResponse, error)
	Override(ctx context.Context, chapterID, studentID uint, actor Actor, payload dto.OverrideProgressRequest) (dto.ProgressResponse, error)
	Status(ctx context.Context, chapterID, studentID uint, actor Actor) (dto.ProgressResponse, error)
}

type progressService struct {
	chapters  repository.ChapterRepository
	students  repository.StudentRepository
	progress  repository.ProgressRepository
	resolver  *SequenceResolver
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProgressService builds the progress state machine.
func NewProgressService(chapters repository.ChapterRepository, students repository.StudentRepository, progress repository.ProgressRepository, resolver *SequenceResolver, validate *validator.Validate, logger zerolog.Logger) ProgressService {
	return &progressService{
		chapters:  chapters,
		students:  students,
		progress:  progress,
		resolver:  resolver,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "progress_service").Logger(),
		now:       time.Now,
	}
}

// Start moves the actor's record into in_progress. A stale locked state is
// tolerated as long as the resolver says the chapter is reachable now.
// Starting an already started or completed chapter is a no-op success.
func (s *progressService) Start(ctx context.Context, chapterID uint, actor Actor) (dto.ProgressResponse, error) {
	if !actor.IsStudent() {
		return dto.ProgressResponse{}, ErrNotRecordOwner
	}

	chapter, err := s.loadChapter(ctx, chapterID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	accessible, err := s.resolver.Accessible(ctx, chapter, actor.ID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}
	if !accessible {
		return dto.ProgressResponse{}, ErrSequenceLocked
	}

	record, err := s.progress.Upsert(ctx, chapterID, actor.ID, func(record *models.ChapterProgress) {
		if record.State == models.ProgressInProgress || record.State == models.ProgressCompleted {
			return
		}

		record.State = models.ProgressInProgress
		if record.StartedAt == nil {
			started := s.now()
			record.StartedAt = &started
		}
	})
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	s.logger.Info().
		Uint("chapter_id", chapterID).
		Uint("student_id", actor.ID).
		Str("state", record.State).
		Msg("progress started")

	return dto.NewProgressResponse(record), nil
}

// Submit grades the answers against the chapter quiz and completes the
// record. Re-submission is allowed; the latest score and completion time
// win. The sequence gate applies here as well as on Start.
func (s *progressService) Submit(ctx context.Context, chapterID uint, actor Actor, payload dto.SubmitProgressRequest) (dto.ProgressResponse, error) {
	if !actor.IsStudent() {
		return dto.ProgressResponse{}, ErrNotRecordOwner
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.ProgressResponse{}, err
	}
	if len(payload.Answers) == 0 {
		return dto.ProgressResponse{}, ErrEmptyAnswers
	}

	chapter, err := s.loadChapter(ctx, chapterID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	accessible, err := s.resolver.Accessible(ctx, chapter, actor.ID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}
	if !accessible {
		return dto.ProgressResponse{}, ErrSequenceLocked
	}

	questions, err := chapter.Quiz()
	if err != nil {
		return dto.ProgressResponse{}, err
	}
	if len(questions) == 0 {
		return dto.ProgressResponse{}, ErrNoQuiz
	}

	score := gradeAnswers(questions, payload.Answers)
	note := s.sanitizer.Sanitize(strings.TrimSpace(payload.Note))

	record, err := s.complete(ctx, chapterID, actor.ID, score, note)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	s.logger.Info().
		Uint("chapter_id", chapterID).
		Uint("student_id", actor.ID).
		Int("score", score).
		Msg("quiz submitted")

	return dto.NewProgressResponse(record), nil
}

// Override records an instructor-assigned score, clamped to [0,100]. It
// deliberately skips the sequence gate: grading offline work must succeed
// regardless of the student's unlock position.
func (s *progressService) Override(ctx context.Context, chapterID, studentID uint, actor Actor, payload dto.OverrideProgressRequest) (dto.ProgressResponse, error) {
	if !actor.IsStaff() {
		return dto.ProgressResponse{}, ErrNotRecordOwner
	}

	chapter, err := s.loadChapter(ctx, chapterID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	if !actor.IsAdmin() && chapter.TeacherID != actor.ID {
		return dto.ProgressResponse{}, ErrNotChapterOwner
	}

	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrStudentNotFound
		}
		return dto.ProgressResponse{}, err
	}

	score := clampScore(payload.Score)
	note := s.sanitizer.Sanitize(strings.TrimSpace(payload.Feedback))

	record, err := s.complete(ctx, chapterID, studentID, score, note)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	s.logger.Info().
		Uint("chapter_id", chapterID).
		Uint("student_id", studentID).
		Uint("grader_id", actor.ID).
		Int("score", score).
		Msg("progress completed by override")

	return dto.NewProgressResponse(record), nil
}

// Status reports the record as stored, or a synthetic accessible/locked
// view when the student has not touched the chapter yet. Nothing is
// persisted on this path.
func (s *progressService) Status(ctx context.Context, chapterID, studentID uint, actor Actor) (dto.ProgressResponse, error) {
	if !actor.IsStaff() && actor.ID != studentID {
		return dto.ProgressResponse{}, ErrNotRecordOwner
	}

	chapter, err := s.loadChapter(ctx, chapterID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	record, err := s.progress.Get(ctx, chapterID, studentID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}
	if record != nil {
		return dto.NewProgressResponse(*record), nil
	}

	accessible, err := s.resolver.Accessible(ctx, chapter, studentID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	state := models.ProgressLocked
	if accessible {
		state = models.ProgressAccessible
	}

	return dto.ProgressResponse{
		ChapterID: chapterID,
		StudentID: studentID,
		State:     state,
	}, nil
}

// complete applies the shared completion effect: state becomes completed,
// the completion time and score are overwritten, and startedAt is
// backfilled if the record was never started.
func (s *progressService) complete(ctx context.Context, chapterID, studentID uint, score int, note string) (models.ChapterProgress, error) {
	return s.progress.Upsert(ctx, chapterID, studentID, func(record *models.ChapterProgress) {
		completed := s.now()
		record.State = models.ProgressCompleted
		record.CompletedAt = &completed
		record.Score = &score

		if record.StartedAt == nil {
			record.StartedAt = &completed
		}

		if note != "" {
			notes, decodeErr := record.NoteList()
			if decodeErr != nil {
				notes = nil
			}
			notes = append(notes, note)
			if payload, marshalErr := json.Marshal(notes); marshalErr == nil {
				record.Notes = datatypes.JSON(payload)
			}
		}
	})
}

func (s *progressService) loadChapter(ctx context.Context, chapterID uint) (models.Chapter, error) {
	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Chapter{}, ErrChapterNotFound
		}
		return models.Chapter{}, err
	}

	return chapter, nil
}

// gradeAnswers scores a submission against the quiz. Answers are matched by
// question prompt; comparison ignores case and surrounding whitespace.
// Unanswered questions count as wrong.
func gradeAnswers(questions []models.QuizQuestion, answers map[string]string) int {
	correct := 0
	for _, question := range questions {
		answer, ok := answers[question.Prompt]
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.Answer)) {
			correct++
		}
	}

	return int(math.Round(100 * float64(correct) / float64(len(questions))))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
