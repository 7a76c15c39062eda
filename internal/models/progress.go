package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Progress lifecycle states. A record only ever moves forward, except that
// a completed chapter may be re-submitted (the completion overwrite rule).
const (
	ProgressLocked     = "locked"
	ProgressAccessible = "accessible"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
)

// ChapterProgress is the per-student, per-chapter progress record. The
// composite identity (chapter_id, student_id) is enforced by a unique index;
// at most one record exists per pair.
type ChapterProgress struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ChapterID   uint           `gorm:"not null;uniqueIndex:idx_progress_chapter_student;index" json:"chapter_id"`
	StudentID   uint           `gorm:"not null;uniqueIndex:idx_progress_chapter_student;index" json:"student_id"`
	State       string         `gorm:"size:32;not null;default:'accessible'" json:"state"`
	StartedAt   *time.Time     `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Score       *int           `json:"score"`
	Notes       datatypes.JSON `gorm:"type:jsonb" json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Chapter     Chapter        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student     Student        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsCompleted reports whether the chapter has been completed by the student.
func (p ChapterProgress) IsCompleted() bool {
	return p.State == ProgressCompleted
}

// NoteList decodes the free-form submission notes attached to the record.
func (p ChapterProgress) NoteList() ([]string, error) {
	if len(p.Notes) == 0 {
		return nil, nil
	}

	var notes []string
	if err := json.Unmarshal(p.Notes, &notes); err != nil {
		return nil, err
	}

	return notes, nil
}

// ValidProgressState reports whether the value is a known lifecycle state.
func ValidProgressState(state string) bool {
	switch state {
	case ProgressLocked, ProgressAccessible, ProgressInProgress, ProgressCompleted:
		return true
	default:
		return false
	}
}
