package dto

import (
	"time"

	"github.com/arka-edu/arka-api/internal/models"
)

// SubmitProgressRequest carries a student's quiz answers keyed by question
// prompt, plus an optional free-form note.
type SubmitProgressRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`
	Note    string            `json:"note" validate:"omitempty,max=2000"`
}

// OverrideProgressRequest carries a teacher-assigned score for manual or
// quiz-less completion. The score is clamped to [0,100] by the service.
type OverrideProgressRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback" validate:"omitempty,max=2000"`
}

// ProgressResponse is the serialized progress record returned to clients.
type ProgressResponse struct {
	ChapterID   uint       `json:"chapter_id"`
	StudentID   uint       `json:"student_id"`
	State       string     `json:"state"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Score       *int       `json:"score"`
	Notes       []string   `json:"notes,omitempty"`
}

// NewProgressResponse converts a progress model into a DTO.
func NewProgressResponse(record models.ChapterProgress) ProgressResponse {
	notes, _ := record.NoteList()
	return ProgressResponse{
		ChapterID:   record.ChapterID,
		StudentID:   record.StudentID,
		State:       record.State,
		StartedAt:   record.StartedAt,
		CompletedAt: record.CompletedAt,
		Score:       record.Score,
		Notes:       notes,
	}
}

// QuizDocumentRequest replaces a chapter's quiz question document.
type QuizDocumentRequest struct {
	Questions []QuizQuestionPayload `json:"questions" validate:"required,min=1,dive"`
}

// QuizQuestionPayload is one authored question.
type QuizQuestionPayload struct {
	Prompt string `json:"prompt" validate:"required,min=3"`
	Answer string `json:"answer" validate:"required,min=1"`
}
