package dto

import "time"

// ScoreStats summarises the defined scores of a chapter's completions.
type ScoreStats struct {
	Average int `json:"average"`
	Min     int `json:"min"`
	Max     int `json:"max"`
	Count   int `json:"count"`
}

// CompletionStats is the per-chapter completion rollup, computed fresh on
// every request.
type CompletionStats struct {
	ChapterID      uint           `json:"chapter_id"`
	TotalStudents  int            `json:"total_students"`
	StatusCounts   map[string]int `json:"status_counts"`
	CompletionRate int            `json:"completion_rate"`
	Scores         ScoreStats     `json:"scores"`
}

// ClassCoverage reports how much of a class syllabus has actually been
// completed across all enrolled students.
type ClassCoverage struct {
	ClassID            uint   `json:"class_id"`
	ClassName          string `json:"class_name"`
	TotalChapters      int    `json:"total_chapters"`
	TotalStudents      int    `json:"total_students"`
	ActualCompletions  int    `json:"actual_completions"`
	CoveragePercentage int    `json:"coverage_percentage"`
}

// ActiveStudents counts distinct students with recent progress activity.
type ActiveStudents struct {
	WindowDays int `json:"window_days"`
	Count      int `json:"count"`
}

// Issue labels attached to struggling students.
const (
	IssueLowAttendance      = "Low Attendance"
	IssueLowScores          = "Low Scores"
	IssueMissingSubmissions = "Missing Submissions"
)

// StrugglingStudent is one flagged student with the signals that tripped
// the heuristic.
type StrugglingStudent struct {
	StudentID          uint     `json:"student_id"`
	Name               string   `json:"name"`
	AttendanceRate     int      `json:"attendance_rate"`
	AverageScore       int      `json:"average_score"`
	MissingSubmissions int      `json:"missing_submissions"`
	Issues             []string `json:"issues"`
}

// TopPerformer is one leaderboard entry for a chapter.
type TopPerformer struct {
	StudentID   uint       `json:"student_id"`
	Name        string     `json:"name"`
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completed_at"`
}

// PendingGrading groups a teacher's ungraded submissions by assignment.
type PendingGrading struct {
	AssignmentID    uint                `json:"assignment_id"`
	AssignmentTitle string              `json:"assignment_title"`
	DueDate         time.Time           `json:"due_date"`
	Submissions     []PendingSubmission `json:"submissions"`
}

// PendingSubmission is one ungraded submission awaiting the teacher.
type PendingSubmission struct {
	SubmissionID uint      `json:"submission_id"`
	StudentID    uint      `json:"student_id"`
	StudentName  string    `json:"student_name"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
