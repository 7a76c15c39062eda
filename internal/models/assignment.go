package models

import "time"

// Assignment is class work authored by a teacher, with a due date that
// decides whether it still counts as active.
type Assignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;index" json:"class_id"`
	TeacherID uint      `gorm:"not null;index" json:"teacher_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	DueDate   time.Time `gorm:"not null" json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Class     Class     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Teacher   Teacher   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsActive reports whether the assignment is still open at the given time.
func (a Assignment) IsActive(now time.Time) bool {
	return a.DueDate.After(now)
}

// Submission is a student's answer to an assignment. Score stays nil until
// the teacher grades it.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;index" json:"student_id"`
	Score        *int       `json:"score"`
	Feedback     string     `gorm:"type:text" json:"feedback"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Assignment   Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student      Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// IsGraded reports whether the submission has received a score.
func (s Submission) IsGraded() bool {
	return s.Score != nil
}
