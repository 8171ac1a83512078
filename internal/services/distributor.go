package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"go.uber.org/zap"
)

var (
	// ErrNoneAvailable means no group member qualified for automatic
	// assignment. It is a planning failure reported to the operator log,
	// not a user-facing error.
	ErrNoneAvailable = errors.New("no eligible assignee available")

	// ErrRecentlyAssigned means the topic was assigned inside the
	// configured minimum window; the scheduling cycle is skipped.
	ErrRecentlyAssigned = errors.New("topic was assigned too recently")
)

const (
	recentAssignLookback  = 6 * 30 * 24 * time.Hour
	relaxedAssignLookback = 14 * 24 * time.Hour
)

// DistributorService picks a fair candidate from a group for automatic
// assignment, avoiding users who held the topic recently.
type DistributorService struct {
	groups  repository.GroupRepository
	actions repository.ActionRepository
	logger  *zap.Logger
	rng     *rand.Rand
}

// NewDistributorService creates a new DistributorService. Pass a seeded rng
// for deterministic behavior in tests; nil falls back to a time-seeded one.
func NewDistributorService(
	groups repository.GroupRepository,
	actions repository.ActionRepository,
	logger *zap.Logger,
	rng *rand.Rand,
) *DistributorService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &DistributorService{
		groups:  groups,
		actions: actions,
		logger:  logger,
		rng:     rng,
	}
}

// PickOptions tune a distribution run.
type PickOptions struct {
	// MinTimeBetween skips the run entirely if the topic was assigned
	// within the window. Zero disables the guard.
	MinTimeBetween time.Duration

	// InWorkingHours prefers candidates currently inside their working
	// hours; when nobody is, the pick falls back to the whole pool.
	InWorkingHours bool

	// Now overrides the clock (tests). Zero means time.Now.
	Now time.Time
}

// Pick selects a group member to auto-assign to the topic. The strict
// fairness window (six months of distinct recent assignees) is relaxed to
// two weeks before giving up with ErrNoneAvailable.
func (s *DistributorService) Pick(topicID, groupID uint64, opts PickOptions) (*models.User, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	members, err := s.groups.Members(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", err)
	}

	candidates := make([]models.User, 0, len(members))
	for _, m := range members {
		if !m.OnHoliday {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		s.reportNoOne(topicID, groupID)
		return nil, ErrNoneAvailable
	}

	if opts.MinTimeBetween > 0 {
		last, err := s.actions.LastAssignedAt(topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to check last assignment: %w", err)
		}
		if last != nil && now.Sub(*last) < opts.MinTimeBetween {
			return nil, ErrRecentlyAssigned
		}
	}

	recent, err := s.actions.RecentAssignees(topicID, now.Add(-recentAssignLookback), len(candidates))
	if err != nil {
		return nil, fmt.Errorf("failed to load recent assignees: %w", err)
	}

	pool := subtract(candidates, recent)
	if len(pool) == 0 {
		// Strict window exhausted; only exclude the last two weeks.
		relaxed, err := s.actions.AssigneesSince(topicID, now.Add(-relaxedAssignLookback))
		if err != nil {
			return nil, fmt.Errorf("failed to load relaxed assignees: %w", err)
		}
		pool = subtract(candidates, relaxed)
	}
	if len(pool) == 0 {
		s.reportNoOne(topicID, groupID)
		return nil, ErrNoneAvailable
	}

	if opts.InWorkingHours {
		shuffled := make([]models.User, len(pool))
		copy(shuffled, pool)
		s.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		for i := range shuffled {
			if shuffled[i].InWorkingHours(now) {
				return &shuffled[i], nil
			}
		}
	}

	pick := pool[s.rng.Intn(len(pool))]
	return &pick, nil
}

func (s *DistributorService) reportNoOne(topicID, groupID uint64) {
	s.logger.Warn("no one available to assign",
		zap.Uint64("topic_id", topicID),
		zap.Uint64("group_id", groupID),
	)
}

func subtract(users []models.User, excluded []uint64) []models.User {
	if len(excluded) == 0 {
		return users
	}

	skip := make(map[uint64]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	result := make([]models.User, 0, len(users))
	for _, u := range users {
		if _, ok := skip[u.ID]; !ok {
			result = append(result, u)
		}
	}
	return result
}
