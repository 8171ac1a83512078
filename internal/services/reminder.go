package services

import (
	"context"
	"errors"
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/notify"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReminderService sweeps active assignments and nags users holding stale
// ones, respecting each user's configured frequency.
type ReminderService struct {
	assignments   repository.AssignmentRepository
	users         repository.UserRepository
	notifications notify.NotificationSink
	maxPerSweep   int
	logger        *zap.Logger
}

// NewReminderService creates a new ReminderService. maxPerSweep caps the
// number of reminders sent per sweep; zero means no cap.
func NewReminderService(
	assignments repository.AssignmentRepository,
	users repository.UserRepository,
	notifications notify.NotificationSink,
	maxPerSweep int,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		assignments:   assignments,
		users:         users,
		notifications: notifications,
		maxPerSweep:   maxPerSweep,
		logger:        logger,
	}
}

// Sweep walks every active assignment once and sends due reminders. Errors
// on individual assignments are logged and skipped so one bad row never
// aborts the sweep. Returns the number of reminders sent.
func (s *ReminderService) Sweep(ctx context.Context, now time.Time) (int, error) {
	assignments, err := s.assignments.ListActive()
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range assignments {
		if s.maxPerSweep > 0 && sent >= s.maxPerSweep {
			break
		}
		if s.remind(ctx, &assignments[i], now) {
			sent++
		}
	}

	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, assignment *models.Assignment, now time.Time) bool {
	// Only individual users are reminded.
	if assignment.AssignedTo.Type != models.AssigneeUser {
		return false
	}

	user, err := s.users.FindByID(assignment.AssignedTo.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("failed to load assignee",
				zap.Uint64("assignment_id", assignment.ID), zap.Error(err))
		}
		return false
	}

	interval := user.RemindersFrequency.Interval()
	if interval == 0 {
		return false
	}

	reference := assignment.ActiveSince
	if assignment.LastRemindedAt != nil && assignment.LastRemindedAt.After(reference) {
		reference = *assignment.LastRemindedAt
	}
	if now.Sub(reference) < interval {
		return false
	}

	// Stamp first: if the assignment was deleted by a concurrent unassign,
	// the reminder is simply dropped.
	if err := s.assignments.UpdateLastRemindedAt(assignment.ID, now); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("failed to record reminder timestamp",
				zap.Uint64("assignment_id", assignment.ID), zap.Error(err))
		}
		return false
	}

	payload := notify.Payload{
		TopicID:        assignment.TopicID,
		TopicTitle:     assignment.Topic.Title,
		AssignedToType: string(assignment.AssignedTo.Type),
		AssignedToID:   assignment.AssignedTo.ID,
	}
	if err := s.notifications.Notify(ctx, []uint64{user.ID}, notify.KindReminder, payload); err != nil {
		s.logger.Error("failed to enqueue reminder",
			zap.Uint64("assignment_id", assignment.ID), zap.Error(err))
		return false
	}

	return true
}
