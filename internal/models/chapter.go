package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Chapter is a single unit of instruction with an ordered position inside
// its unit. Quiz questions are stored as an authored JSON document.
type Chapter struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UnitID           uint           `gorm:"not null;index" json:"unit_id"`
	TeacherID        uint           `gorm:"not null;index" json:"teacher_id"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Summary          string         `gorm:"type:text" json:"summary"`
	Position         int            `gorm:"not null;default:0" json:"position"`
	RequiresPrevious bool           `gorm:"not null;default:true" json:"requires_previous"`
	Questions        datatypes.JSON `gorm:"type:jsonb" json:"questions"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Unit             Unit           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Teacher          Teacher        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// QuizQuestion is one entry of a chapter's quiz document.
type QuizQuestion struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// Quiz decodes the chapter's question document. An empty document yields an
// empty slice, not an error.
func (c Chapter) Quiz() ([]QuizQuestion, error) {
	if len(c.Questions) == 0 {
		return nil, nil
	}

	var questions []QuizQuestion
	if err := json.Unmarshal(c.Questions, &questions); err != nil {
		return nil, err
	}

	return questions, nil
}

// HasQuiz reports whether the chapter carries at least one quiz question.
func (c Chapter) HasQuiz() bool {
	questions, err := c.Quiz()
	return err == nil && len(questions) > 0
}
