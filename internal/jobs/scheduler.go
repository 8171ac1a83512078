package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/constants"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/services"
	"go.uber.org/zap"
)

// ReminderJob periodically sweeps assignments for due reminders. Overlap
// protection is the caller's concern: Run is a single loop, so two sweeps
// never overlap within one process.
type ReminderJob struct {
	reminders *services.ReminderService
	period    time.Duration
	logger    *zap.Logger
}

// NewReminderJob creates a new ReminderJob
func NewReminderJob(reminders *services.ReminderService, period time.Duration, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{
		reminders: reminders,
		period:    period,
		logger:    logger,
	}
}

// Run sweeps on the configured period until the context is canceled.
func (j *ReminderJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := j.reminders.Sweep(ctx, time.Now().UTC())
			if err != nil {
				j.logger.Error("reminder sweep failed", zap.Error(err))
				continue
			}
			if sent > 0 {
				j.logger.Info("reminder sweep completed", zap.Int("sent", sent))
			}
		}
	}
}

// RandomAssignRule describes one recurring automatic distribution: pick a
// member of the group and assign them to the topic.
type RandomAssignRule struct {
	TopicID        uint64
	GroupID        uint64
	Every          time.Duration
	MinTimeBetween time.Duration
	InWorkingHours bool
}

// RandomAssignJob runs the configured random-assign rules on their periods.
type RandomAssignJob struct {
	distributor *services.DistributorService
	assigner    *services.AssignerService
	rules       []RandomAssignRule
	logger      *zap.Logger
}

// NewRandomAssignJob creates a new RandomAssignJob
func NewRandomAssignJob(
	distributor *services.DistributorService,
	assigner *services.AssignerService,
	rules []RandomAssignRule,
	logger *zap.Logger,
) *RandomAssignJob {
	return &RandomAssignJob{
		distributor: distributor,
		assigner:    assigner,
		rules:       rules,
		logger:      logger,
	}
}

// Run executes every rule on its own ticker until the context is canceled.
func (j *RandomAssignJob) Run(ctx context.Context) {
	for _, rule := range j.rules {
		go j.runRule(ctx, rule)
	}
	<-ctx.Done()
}

func (j *RandomAssignJob) runRule(ctx context.Context, rule RandomAssignRule) {
	ticker := time.NewTicker(rule.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.execute(ctx, rule)
		}
	}
}

func (j *RandomAssignJob) execute(ctx context.Context, rule RandomAssignRule) {
	user, err := j.distributor.Pick(rule.TopicID, rule.GroupID, services.PickOptions{
		MinTimeBetween: rule.MinTimeBetween,
		InWorkingHours: rule.InWorkingHours,
	})
	if err != nil {
		// NoneAvailable is already reported by the distributor; a recent
		// assignment just skips this cycle.
		if !errors.Is(err, services.ErrNoneAvailable) && !errors.Is(err, services.ErrRecentlyAssigned) {
			j.logger.Error("random assign pick failed",
				zap.Uint64("topic_id", rule.TopicID), zap.Error(err))
		}
		return
	}

	_, err = j.assigner.Assign(ctx, services.AssignInput{
		TopicID: rule.TopicID,
		Target:  models.UserAssignee(user.ID),
		ActorID: constants.SystemUserID,
	})
	if err != nil {
		j.logger.Error("random assign failed",
			zap.Uint64("topic_id", rule.TopicID),
			zap.Uint64("user_id", user.ID),
			zap.Error(err),
		)
	}
}
