package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ReminderEvent is the fire-and-forget payload published when a student
// should be nudged. Delivery (email, push) belongs to downstream consumers;
// the core only decides that a reminder is due.
type ReminderEvent struct {
	EventID      string    `json:"event_id"`
	StudentID    uint      `json:"student_id"`
	StudentName  string    `json:"student_name"`
	ClassID      uint      `json:"class_id"`
	Issues       []string  `json:"issues"`
	RequestedBy  uint      `json:"requested_by"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// ReminderService dispatches reminder events for flagged students.
type ReminderService interface {
	RemindStruggling(ctx context.Context, classID uint, actor Actor) (int, error)
}

type reminderService struct {
	analytics AnalyticsService
	conn      *nats.Conn
	subject   string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReminderService builds the dispatcher. A nil NATS connection degrades
// to logging only, so environments without a broker still work.
func NewReminderService(analytics AnalyticsService, conn *nats.Conn, subject string, logger zerolog.Logger) ReminderService {
	return &reminderService{
		analytics: analytics,
		conn:      conn,
		subject:   subject,
		logger:    logger.With().Str("component", "reminder_service").Logger(),
		now:       time.Now,
	}
}

// RemindStruggling runs struggling detection for the class and publishes
// one event per flagged student. Publish failures are logged and skipped;
// reminders are best-effort by design.
func (s *reminderService) RemindStruggling(ctx context.Context, classID uint, actor Actor) (int, error) {
	if err := s.analytics.AuthorizeClass(ctx, classID, actor); err != nil {
		return 0, err
	}

	flagged, err := s.analytics.StrugglingStudents(ctx, classID)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, student := range flagged {
		event := ReminderEvent{
			EventID:      uuid.NewString(),
			StudentID:    student.StudentID,
			StudentName:  student.Name,
			ClassID:      classID,
			Issues:       student.Issues,
			RequestedBy:  actor.ID,
			DispatchedAt: s.now(),
		}

		if s.publish(event) {
			dispatched++
		}
	}

	s.logger.Info().
		Uint("class_id", classID).
		Int("flagged", len(flagged)).
		Int("dispatched", dispatched).
		Msg("struggling reminders dispatched")

	return dispatched, nil
}

func (s *reminderService) publish(event ReminderEvent) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		return false
	}

	if s.conn == nil {
		s.logger.Info().
			Uint("student_id", event.StudentID).
			Strs("issues", event.Issues).
			Msg("reminder due (no broker configured)")
		return true
	}

	if err := s.conn.Publish(s.subject, payload); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", event.StudentID).Msg("failed to publish reminder")
		return false
	}

	return true
}
