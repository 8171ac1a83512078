package repository

import (
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/models"
	"gorm.io/gorm"
)

// GormActionRepository is a GORM implementation of ActionRepository
type GormActionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new ActionRepository
func NewActionRepository(db *gorm.DB) ActionRepository {
	return &GormActionRepository{db: db}
}

// RecentAssignees returns the distinct users assigned to a topic since the
// given time, most recent first, capped at limit.
func (r *GormActionRepository) RecentAssignees(topicID uint64, since time.Time, limit int) ([]uint64, error) {
	var all []uint64
	err := r.db.Model(&models.UserAction{}).
		Where("action_type = ? AND target_topic_id = ? AND created_at > ?",
			models.ActionAssigned, topicID, since).
		Order("created_at DESC").
		Pluck("user_id", &all).Error
	if err != nil {
		return nil, err
	}

	return distinctHead(all, limit), nil
}

// AssigneesSince returns the distinct users assigned to a topic after the
// given time.
func (r *GormActionRepository) AssigneesSince(topicID uint64, since time.Time) ([]uint64, error) {
	var all []uint64
	err := r.db.Model(&models.UserAction{}).
		Where("action_type = ? AND target_topic_id = ? AND created_at > ?",
			models.ActionAssigned, topicID, since).
		Order("created_at DESC").
		Pluck("user_id", &all).Error
	if err != nil {
		return nil, err
	}

	return distinctHead(all, len(all)), nil
}

// LastAssignedAt returns the time of the most recent assignment action on a
// topic, or nil if there has never been one.
func (r *GormActionRepository) LastAssignedAt(topicID uint64) (*time.Time, error) {
	var action models.UserAction
	err := r.db.
		Where("action_type = ? AND target_topic_id = ?", models.ActionAssigned, topicID).
		Order("created_at DESC").
		First(&action).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &action.CreatedAt, nil
}

// distinctHead keeps the first occurrence of each id, preserving order.
func distinctHead(ids []uint64, limit int) []uint64 {
	if limit <= 0 {
		limit = len(ids)
	}
	seen := make(map[uint64]struct{}, len(ids))
	result := make([]uint64, 0, limit)

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
		if len(result) >= limit {
			break
		}
	}

	return result
}
