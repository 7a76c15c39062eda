package dto

import "time"

// StudentDashboardResponse is the learner-facing view: their own progress
// through the class syllabus, nothing about other students.
type StudentDashboardResponse struct {
	Summary  StudentSummary        `json:"summary"`
	Chapters []ChapterProgressView `json:"chapters"`
}

// StudentSummary aggregates a single student's standing.
type StudentSummary struct {
	TotalChapters  int `json:"total_chapters"`
	Completed      int `json:"completed"`
	InProgress     int `json:"in_progress"`
	CompletionRate int `json:"completion_rate"`
	AverageScore   int `json:"average_score"`
}

// ChapterProgressView is one chapter of the syllabus from the student's
// point of view.
type ChapterProgressView struct {
	ChapterID   uint       `json:"chapter_id"`
	UnitID      uint       `json:"unit_id"`
	Title       string     `json:"title"`
	State       string     `json:"state"`
	Score       *int       `json:"score"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TeacherDashboardResponse scopes analytics to the teacher's class.
type TeacherDashboardResponse struct {
	Coverage        ClassCoverage       `json:"coverage"`
	ActiveStudents  ActiveStudents      `json:"active_students"`
	Struggling      []StrugglingStudent `json:"struggling_students"`
	PendingGradings []PendingGrading    `json:"pending_gradings"`
}

// AdminDashboardResponse is the unscoped view across every class.
type AdminDashboardResponse struct {
	Coverage       []ClassCoverage `json:"coverage"`
	ActiveStudents ActiveStudents  `json:"active_students"`
	TotalClasses   int             `json:"total_classes"`
}
