package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/models"
)

type stubAnalytics struct {
	AnalyticsService
	struggling   []dto.StrugglingStudent
	err          error
	authorizeErr error
}

func (s *stubAnalytics) AuthorizeClass(_ context.Context, _ uint, actor Actor) error {
	if !actor.IsStaff() {
		return ErrNotRecordOwner
	}
	return s.authorizeErr
}

func (s *stubAnalytics) StrugglingStudents(_ context.Context, _ uint) ([]dto.StrugglingStudent, error) {
	return s.struggling, s.err
}

func TestRemindStrugglingDispatchesPerFlaggedStudent(t *testing.T) {
	analytics := &stubAnalytics{struggling: []dto.StrugglingStudent{
		{StudentID: 1, Name: "Andi", Issues: []string{dto.IssueLowAttendance}},
		{StudentID: 2, Name: "Budi", Issues: []string{dto.IssueLowScores, dto.IssueMissingSubmissions}},
	}}

	// A nil connection degrades to log-only dispatch.
	svc := NewReminderService(analytics, nil, "arka.reminders", zerolog.Nop())

	dispatched, err := svc.RemindStruggling(context.Background(), 5, Actor{ID: 100, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, 2, dispatched)
}

func TestRemindStrugglingRequiresStaff(t *testing.T) {
	svc := NewReminderService(&stubAnalytics{}, nil, "arka.reminders", zerolog.Nop())

	_, err := svc.RemindStruggling(context.Background(), 5, Actor{ID: 1, Role: models.RoleStudent})
	require.ErrorIs(t, err, ErrNotRecordOwner)
}

func TestRemindStrugglingRefusesForeignClass(t *testing.T) {
	svc := NewReminderService(&stubAnalytics{authorizeErr: ErrNotClassOwner}, nil, "arka.reminders", zerolog.Nop())

	_, err := svc.RemindStruggling(context.Background(), 5, Actor{ID: 100, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrNotClassOwner)
}

func TestRemindStrugglingPropagatesAnalyticsErrors(t *testing.T) {
	svc := NewReminderService(&stubAnalytics{err: ErrClassNotFound}, nil, "arka.reminders", zerolog.Nop())

	_, err := svc.RemindStruggling(context.Background(), 9999, Actor{ID: 100, Role: models.RoleAdmin})
	require.ErrorIs(t, err, ErrClassNotFound)
}
