package events

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/hoshifuri/topic-assign-api/internal/constants"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/notify"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/hoshifuri/topic-assign-api/internal/services"
	"github.com/hoshifuri/topic-assign-api/internal/settings"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// assignDirective matches an inline "assign @username" hint in post content.
var assignDirective = regexp.MustCompile(`(?i)\bassign @([a-zA-Z0-9_\-.]+)`)

// Trigger wires lifecycle events to the assigner. It never touches the
// assignment store directly; every mutation goes through the assigner's
// public operations.
type Trigger struct {
	assigner    *services.AssignerService
	eligibility *services.EligibilityService
	assignments repository.AssignmentRepository
	topics      repository.TopicRepository
	users       repository.UserRepository
	groups      repository.GroupRepository
	settings    *settings.Settings
	tracking    notify.TrackingPublisher
	logger      *zap.Logger
}

// NewTrigger creates a new Trigger
func NewTrigger(
	assigner *services.AssignerService,
	eligibility *services.EligibilityService,
	assignments repository.AssignmentRepository,
	topics repository.TopicRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	s *settings.Settings,
	tracking notify.TrackingPublisher,
	logger *zap.Logger,
) *Trigger {
	return &Trigger{
		assigner:    assigner,
		eligibility: eligibility,
		assignments: assignments,
		topics:      topics,
		users:       users,
		groups:      groups,
		settings:    s,
		tracking:    tracking,
		logger:      logger,
	}
}

// Register subscribes the trigger's handlers on the bus.
func (t *Trigger) Register(bus *Bus) {
	bus.Subscribe(PostCreated, t.HandlePostChanged)
	bus.Subscribe(PostEdited, t.HandlePostChanged)
	bus.Subscribe(TopicStatusUpdated, t.HandleTopicStatusUpdated)
	bus.Subscribe(MessageArchived, t.HandleMessageArchived)
	bus.Subscribe(MessageRestored, t.HandleMessageRestored)
	bus.Subscribe(GroupMembershipChanged, t.HandleGroupMembershipChanged)
}

// HandlePostChanged re-evaluates content-based assignment hints. Force is
// always set so the latest directive wins over an earlier assignment.
func (t *Trigger) HandlePostChanged(ctx context.Context, e Event) error {
	if !t.settings.AssignEnabled() || e.Post == nil {
		return nil
	}

	match := assignDirective.FindStringSubmatch(e.Post.Raw)
	if match == nil {
		return nil
	}

	author, err := t.users.FindByID(e.Post.AuthorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load post author: %w", err)
	}

	ok, err := t.eligibility.CanAssign(author)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	target, err := t.users.FindByUsername(match[1])
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to resolve directive target: %w", err)
	}

	_, err = t.assigner.Assign(ctx, services.AssignInput{
		TopicID: e.Post.TopicID,
		Target:  models.UserAssignee(target.ID),
		ActorID: author.ID,
		Force:   true,
	})
	return err
}

// HandleTopicStatusUpdated unassigns closed topics when configured to.
func (t *Trigger) HandleTopicStatusUpdated(ctx context.Context, e Event) error {
	if !t.settings.UnassignOnClose() || !e.Enabled {
		return nil
	}
	if e.Status != StatusClosed && e.Status != StatusAutoClosed {
		return nil
	}

	return t.assigner.Unassign(ctx, e.TopicID, constants.SystemUserID, true)
}

// HandleMessageArchived publishes a tracking update when the assignee
// archives their own message, and snapshots + drops the assignment when a
// group archives it.
func (t *Trigger) HandleMessageArchived(ctx context.Context, e Event) error {
	assignment, err := t.assigner.FindAssignment(e.TopicID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return nil
	}

	t.publishIfAssignee(ctx, e.TopicID, e.UserID, assignment)

	if !t.settings.UnassignOnGroupArchive() || e.GroupID == 0 {
		return nil
	}

	topic, err := t.topics.FindByID(e.TopicID)
	if err != nil {
		return fmt.Errorf("failed to load topic: %w", err)
	}

	prevID := assignment.AssignedTo.ID
	prevType := assignment.AssignedTo.Type
	topic.PrevAssignedToID = &prevID
	topic.PrevAssignedToType = &prevType
	if err := t.topics.Update(topic); err != nil {
		return fmt.Errorf("failed to snapshot assignee: %w", err)
	}

	return t.assigner.Unassign(ctx, e.TopicID, constants.SystemUserID, true)
}

// HandleMessageRestored publishes a tracking update when the assignee moves
// their message back, and restores a snapshotted assignee if one exists.
func (t *Trigger) HandleMessageRestored(ctx context.Context, e Event) error {
	assignment, err := t.assigner.FindAssignment(e.TopicID)
	if err != nil {
		return err
	}
	if assignment != nil {
		t.publishIfAssignee(ctx, e.TopicID, e.UserID, assignment)
	}

	if !t.settings.UnassignOnGroupArchive() || e.GroupID == 0 {
		return nil
	}

	topic, err := t.topics.FindByID(e.TopicID)
	if err != nil {
		return fmt.Errorf("failed to load topic: %w", err)
	}
	if topic.PrevAssignedToID == nil || topic.PrevAssignedToType == nil {
		return nil
	}

	target := models.Assignee{Type: *topic.PrevAssignedToType, ID: *topic.PrevAssignedToID}
	if _, err := t.assigner.Assign(ctx, services.AssignInput{
		TopicID: e.TopicID,
		Target:  target,
		ActorID: constants.SystemUserID,
		Force:   true,
		Silent:  true,
	}); err != nil {
		return err
	}

	topic.PrevAssignedToID = nil
	topic.PrevAssignedToType = nil
	return t.topics.Update(topic)
}

// HandleGroupMembershipChanged revokes every assignment held by a user who
// lost their last allow-listed membership.
func (t *Trigger) HandleGroupMembershipChanged(ctx context.Context, e Event) error {
	if !e.Removed {
		return nil
	}

	group, err := t.groups.FindByID(e.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load group: %w", err)
	}
	if !t.settings.GroupAllowed(group.Name) {
		return nil
	}

	remaining, err := t.groups.UserGroups(e.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user groups: %w", err)
	}
	for _, g := range remaining {
		if t.settings.GroupAllowed(g.Name) {
			return nil
		}
	}

	assignments, err := t.assignments.ListByAssignedUser(e.UserID)
	if err != nil {
		return fmt.Errorf("failed to list user assignments: %w", err)
	}

	// Each topic is unassigned independently; one failure must not block
	// the rest.
	for _, a := range assignments {
		if err := t.assigner.Unassign(ctx, a.TopicID, constants.SystemUserID, false); err != nil {
			t.logger.Error("failed to unassign revoked user",
				zap.Uint64("topic_id", a.TopicID),
				zap.Uint64("user_id", e.UserID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (t *Trigger) publishIfAssignee(ctx context.Context, topicID, userID uint64, assignment *models.Assignment) {
	if assignment.AssignedTo.Type != models.AssigneeUser || assignment.AssignedTo.ID != userID {
		return
	}

	err := t.tracking.Publish(ctx, notify.TrackingChannelAssigned,
		map[string]uint64{"topic_id": topicID}, []uint64{userID})
	if err != nil {
		t.logger.Error("failed to publish tracking state",
			zap.Uint64("topic_id", topicID), zap.Error(err))
	}
}
