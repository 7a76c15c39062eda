package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/repository"
)

// ErrInvalidQuizDocument indicates the authored question document does not
// satisfy the quiz schema.
var ErrInvalidQuizDocument = errors.New("quiz document does not match schema")

const quizSchemaSource = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["prompt", "answer"],
		"additionalProperties": false,
		"properties": {
			"prompt": {"type": "string", "minLength": 3},
			"answer": {"type": "string", "minLength": 1}
		}
	}
}`

var quizSchema = jsonschema.MustCompileString("quiz.schema.json", quizSchemaSource)

// QuizService lets chapter owners author the quiz question document.
type QuizService interface {
	ReplaceQuestions(ctx context.Context, chapterID uint, actor Actor, payload dto.QuizDocumentRequest) ([]models.QuizQuestion, error)
	GetQuestions(ctx context.Context, chapterID uint, actor Actor) ([]models.QuizQuestion, error)
}

type quizService struct {
	chapters  repository.ChapterRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuizService builds the quiz authoring service.
func NewQuizService(chapters repository.ChapterRepository, validate *validator.Validate, logger zerolog.Logger) QuizService {
	return &quizService{
		chapters:  chapters,
		validator: validate,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
	}
}

func (s *quizService) ReplaceQuestions(ctx context.Context, chapterID uint, actor Actor, payload dto.QuizDocumentRequest) ([]models.QuizQuestion, error) {
	if !actor.IsStaff() {
		return nil, ErrNotRecordOwner
	}

	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}

	if !actor.IsAdmin() && chapter.TeacherID != actor.ID {
		return nil, ErrNotChapterOwner
	}

	questions := make([]models.QuizQuestion, 0, len(payload.Questions))
	for _, question := range payload.Questions {
		questions = append(questions, models.QuizQuestion{
			Prompt: question.Prompt,
			Answer: question.Answer,
		})
	}

	document, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	if err := validateQuizDocument(document); err != nil {
		return nil, err
	}

	if err := s.chapters.UpdateQuestions(ctx, chapterID, datatypes.JSON(document)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}

	s.logger.Info().
		Uint("chapter_id", chapterID).
		Uint("teacher_id", actor.ID).
		Int("question_count", len(questions)).
		Msg("quiz questions replaced")

	return questions, nil
}

func (s *quizService) GetQuestions(ctx context.Context, chapterID uint, actor Actor) ([]models.QuizQuestion, error) {
	if !actor.IsStaff() {
		return nil, ErrNotRecordOwner
	}

	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}

	return chapter.Quiz()
}

// validateQuizDocument checks the stored JSON against the quiz schema. The
// schema is the authority on document shape; the struct validation above
// only covers the transport payload.
func validateQuizDocument(document []byte) error {
	var decoded interface{}
	if err := json.Unmarshal(document, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuizDocument, err)
	}

	if err := quizSchema.Validate(decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuizDocument, err)
	}

	return nil
}
