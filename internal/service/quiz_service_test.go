package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/models"
)

func newQuizFixture(t *testing.T) (*fakeChapterRepo, QuizService) {
	t.Helper()

	chapters := &fakeChapterRepo{chapters: map[uint]models.Chapter{
		1: {ID: 1, UnitID: 10, TeacherID: 100, Title: "Variables", Position: 1},
	}}
	validate := validator.New(validator.WithRequiredStructEnabled())

	return chapters, NewQuizService(chapters, validate, zerolog.Nop())
}

func TestQuizReplaceQuestionsRoundTrip(t *testing.T) {
	chapters, svc := newQuizFixture(t)
	ctx := context.Background()
	owner := Actor{ID: 100, Role: models.RoleTeacher}

	questions, err := svc.ReplaceQuestions(ctx, 1, owner, dto.QuizDocumentRequest{
		Questions: []dto.QuizQuestionPayload{
			{Prompt: "What is 2+2?", Answer: "4"},
			{Prompt: "What is the capital of France?", Answer: "Paris"},
		},
	})
	require.NoError(t, err)
	require.Len(t, questions, 2)

	stored := chapters.chapters[1]
	require.True(t, stored.HasQuiz())

	loaded, err := svc.GetQuestions(ctx, 1, owner)
	require.NoError(t, err)
	require.Equal(t, questions, loaded)
}

func TestQuizReplaceQuestionsAuthorization(t *testing.T) {
	_, svc := newQuizFixture(t)
	ctx := context.Background()
	payload := dto.QuizDocumentRequest{
		Questions: []dto.QuizQuestionPayload{{Prompt: "What is 2+2?", Answer: "4"}},
	}

	_, err := svc.ReplaceQuestions(ctx, 1, Actor{ID: 1, Role: models.RoleStudent}, payload)
	require.ErrorIs(t, err, ErrNotRecordOwner)

	_, err = svc.ReplaceQuestions(ctx, 1, Actor{ID: 999, Role: models.RoleTeacher}, payload)
	require.ErrorIs(t, err, ErrNotChapterOwner)

	_, err = svc.ReplaceQuestions(ctx, 1, Actor{ID: 999, Role: models.RoleAdmin}, payload)
	require.NoError(t, err, "admins may author any chapter's quiz")

	_, err = svc.ReplaceQuestions(ctx, 404, Actor{ID: 100, Role: models.RoleTeacher}, payload)
	require.ErrorIs(t, err, ErrChapterNotFound)
}

func TestQuizReplaceQuestionsRejectsInvalidPayload(t *testing.T) {
	_, svc := newQuizFixture(t)
	ctx := context.Background()
	owner := Actor{ID: 100, Role: models.RoleTeacher}

	_, err := svc.ReplaceQuestions(ctx, 1, owner, dto.QuizDocumentRequest{})
	require.Error(t, err, "an empty question list fails validation")

	_, err = svc.ReplaceQuestions(ctx, 1, owner, dto.QuizDocumentRequest{
		Questions: []dto.QuizQuestionPayload{{Prompt: "ab", Answer: "4"}},
	})
	require.Error(t, err, "prompts shorter than three characters fail validation")
}

func TestValidateQuizDocument(t *testing.T) {
	require.NoError(t, validateQuizDocument([]byte(`[{"prompt":"What is 2+2?","answer":"4"}]`)))

	err := validateQuizDocument([]byte(`[]`))
	require.ErrorIs(t, err, ErrInvalidQuizDocument)

	err = validateQuizDocument([]byte(`[{"prompt":"What is 2+2?"}]`))
	require.ErrorIs(t, err, ErrInvalidQuizDocument)

	err = validateQuizDocument([]byte(`[{"prompt":"What is 2+2?","answer":"4","extra":true}]`))
	require.ErrorIs(t, err, ErrInvalidQuizDocument)

	err = validateQuizDocument([]byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidQuizDocument)
}
