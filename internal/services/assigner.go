package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/constants"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/notify"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/hoshifuri/topic-assign-api/internal/settings"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAssignDisabled     = errors.New("assignments are disabled")
	ErrForbidden          = errors.New("user is not allowed to assign")
	ErrTopicNotFound      = errors.New("topic not found")
	ErrActorNotFound      = errors.New("acting user not found")
	ErrAssigneeNotFound   = errors.New("assignee not found")
	ErrGroupNotAssignable = errors.New("group is not an assignable target")
)

// AssignerService owns the transactional assign/unassign/reassign operations
// and coordinates their side effects. All ownership changes go through it.
type AssignerService struct {
	assignments   repository.AssignmentRepository
	topics        repository.TopicRepository
	users         repository.UserRepository
	groups        repository.GroupRepository
	eligibility   *EligibilityService
	settings      *settings.Settings
	notifications notify.NotificationSink
	webhooks      notify.WebhookSink
	tracking      notify.TrackingPublisher
	logger        *zap.Logger
}

// NewAssignerService creates a new AssignerService
func NewAssignerService(
	assignments repository.AssignmentRepository,
	topics repository.TopicRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	eligibility *EligibilityService,
	s *settings.Settings,
	notifications notify.NotificationSink,
	webhooks notify.WebhookSink,
	tracking notify.TrackingPublisher,
	logger *zap.Logger,
) *AssignerService {
	return &AssignerService{
		assignments:   assignments,
		topics:        topics,
		users:         users,
		groups:        groups,
		eligibility:   eligibility,
		settings:      s,
		notifications: notifications,
		webhooks:      webhooks,
		tracking:      tracking,
		logger:        logger,
	}
}

// AssignInput describes an assignment request.
type AssignInput struct {
	TopicID uint64
	Target  models.Assignee
	ActorID uint64
	Note    string
	Force   bool
	Silent  bool
}

// Assign makes the target the owner of the topic. Without Force the call is
// idempotent: an already-assigned topic is left untouched and the existing
// assignment is returned.
func (s *AssignerService) Assign(ctx context.Context, input AssignInput) (*models.Assignment, error) {
	if !s.settings.AssignEnabled() {
		return nil, ErrAssignDisabled
	}

	topic, err := s.topics.FindByID(input.TopicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to find topic: %w", err)
	}

	if err := s.ensureEligible(input.ActorID); err != nil {
		return nil, err
	}

	if err := s.validateTarget(input.Target); err != nil {
		return nil, err
	}

	existing, err := s.assignments.FindByTopic(input.TopicID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing assignment: %w", err)
	}
	if existing != nil && !input.Force {
		return existing, nil
	}

	assignment := &models.Assignment{
		TopicID:      input.TopicID,
		AssignedTo:   input.Target,
		AssignedByID: input.ActorID,
		Note:         input.Note,
		ActiveSince:  time.Now().UTC(),
	}

	previous, err := s.assignments.Replace(assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to store assignment: %w", err)
	}

	if !input.Silent {
		if previous != nil {
			s.emitUnassigned(ctx, topic, previous)
		}
		s.emitAssigned(ctx, topic, assignment)
	}

	return assignment, nil
}

// Unassign removes the topic's current owner. Unassigning an unassigned
// topic is a no-op.
func (s *AssignerService) Unassign(ctx context.Context, topicID, actorID uint64, silent bool) error {
	topic, err := s.topics.FindByID(topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTopicNotFound
		}
		return fmt.Errorf("failed to find topic: %w", err)
	}

	if err := s.ensureEligible(actorID); err != nil {
		return err
	}

	deleted, err := s.assignments.DeleteByTopic(topicID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if deleted == nil {
		return nil
	}

	if !silent {
		s.emitUnassigned(ctx, topic, deleted)
	}

	return nil
}

// Reassign replaces the topic's owner in one transaction; the swap is a
// forced Assign, whose delete-then-insert already spans a single transaction
// and emits the unassigned/assigned pair.
func (s *AssignerService) Reassign(ctx context.Context, input AssignInput) (*models.Assignment, error) {
	input.Force = true
	return s.Assign(ctx, input)
}

// FindAssignment returns the active assignment for a topic, or nil.
func (s *AssignerService) FindAssignment(topicID uint64) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByTopic(topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return assignment, nil
}

// ensureEligible verifies the actor may assign. The system actor bypasses
// the check.
func (s *AssignerService) ensureEligible(actorID uint64) error {
	if actorID == constants.SystemUserID {
		return nil
	}

	actor, err := s.users.FindByID(actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActorNotFound
		}
		return fmt.Errorf("failed to find acting user: %w", err)
	}

	ok, err := s.eligibility.CanAssign(actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *AssignerService) validateTarget(target models.Assignee) error {
	switch target.Type {
	case models.AssigneeUser:
		if _, err := s.users.FindByID(target.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssigneeNotFound
			}
			return fmt.Errorf("failed to find assignee: %w", err)
		}
	case models.AssigneeGroup:
		group, err := s.groups.FindByID(target.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssigneeNotFound
			}
			return fmt.Errorf("failed to find assignee group: %w", err)
		}
		if !s.eligibility.GroupAssignable(group) {
			return ErrGroupNotAssignable
		}
	default:
		return ErrAssigneeNotFound
	}
	return nil
}

// emitAssigned enqueues the side effects of a completed assignment. Failures
// are logged and never surfaced: the core mutation has already committed and
// the delivery subsystem owns retries.
func (s *AssignerService) emitAssigned(ctx context.Context, topic *models.Topic, assignment *models.Assignment) {
	payload := s.payloadFor(topic, assignment)

	recipients, err := s.resolveRecipients(assignment.AssignedTo)
	if err != nil {
		s.logger.Error("failed to resolve notification recipients",
			zap.Uint64("topic_id", topic.ID), zap.Error(err))
	} else if err := s.notifications.Notify(ctx, recipients, notify.KindAssigned, payload); err != nil {
		s.logger.Error("failed to enqueue assigned notification",
			zap.Uint64("topic_id", topic.ID), zap.Error(err))
	}

	if err := s.webhooks.Emit(ctx, notify.EventAssigned, payload); err != nil {
		s.logger.Error("failed to enqueue assigned webhook",
			zap.Uint64("topic_id", topic.ID), zap.Error(err))
	}

	if topic.PrivateMessage() && assignment.AssignedTo.Type == models.AssigneeUser {
		s.publishTracking(ctx, topic, assignment.AssignedTo.ID)
	}
}

func (s *AssignerService) emitUnassigned(ctx context.Context, topic *models.Topic, previous *models.Assignment) {
	payload := s.payloadFor(topic, previous)

	recipients, err := s.resolveRecipients(previous.AssignedTo)
	if err != nil {
		s.logger.Error("failed to resolve notification recipients",
			zap.Uint64("topic_id", topic.ID), zap.Error(err))
	} else if err := s.notifications.Notify(ctx, recipients, notify.KindUnassigned, payload); err != nil {
		s.logger.Error("failed to enqueue unassigned notification",
			zap.Uint64("topic_id", topic.ID), zap.Error(err))
	}

	if err := s.webhooks.Emit(ctx, notify.EventUnassigned, payload); err != nil {
		s.logger.Error("failed to enqueue unassigned webhook",
			zap.Uint64("topic_id", topic.ID), zap.Error(err))
	}

	if topic.PrivateMessage() && previous.AssignedTo.Type == models.AssigneeUser {
		s.publishTracking(ctx, topic, previous.AssignedTo.ID)
	}
}

func (s *AssignerService) publishTracking(ctx context.Context, topic *models.Topic, userID uint64) {
	err := s.tracking.Publish(ctx, notify.TrackingChannelAssigned,
		map[string]uint64{"topic_id": topic.ID}, []uint64{userID})
	if err != nil {
		s.logger.Error("failed to publish tracking state",
			zap.Uint64("topic_id", topic.ID), zap.Error(err))
	}
}

// resolveRecipients expands an assignee into the user ids to notify: the
// user itself, or every member for a group target.
func (s *AssignerService) resolveRecipients(assignee models.Assignee) ([]uint64, error) {
	switch assignee.Type {
	case models.AssigneeGroup:
		return s.groups.MemberIDs(assignee.ID)
	default:
		return []uint64{assignee.ID}, nil
	}
}

func (s *AssignerService) payloadFor(topic *models.Topic, assignment *models.Assignment) notify.Payload {
	return notify.Payload{
		TopicID:        topic.ID,
		TopicTitle:     topic.Title,
		AssignedToType: string(assignment.AssignedTo.Type),
		AssignedToID:   assignment.AssignedTo.ID,
		AssignedByID:   assignment.AssignedByID,
		Note:           assignment.Note,
	}
}
