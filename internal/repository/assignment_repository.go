package repository

import (
	"errors"
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/models"
	"gorm.io/gorm"
)

// GormAssignmentRepository is a GORM implementation of AssignmentRepository
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new AssignmentRepository
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

// FindByTopic finds the active assignment for a topic
func (r *GormAssignmentRepository) FindByTopic(topicID uint64) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.Where("topic_id = ?", topicID).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Replace swaps the topic's assignment in a single transaction. A concurrent
// reader either sees the old row or the new one, never both; the unique index
// on topic_id backs that up.
func (r *GormAssignmentRepository) Replace(assignment *models.Assignment) (*models.Assignment, error) {
	var previous *models.Assignment

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Assignment
		err := tx.Where("topic_id = ?", assignment.TopicID).First(&existing).Error
		switch {
		case err == nil:
			previous = &existing
			if err := tx.Unscoped().Delete(&models.Assignment{}, existing.ID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first assignment for this topic
		default:
			return err
		}

		if err := tx.Create(assignment).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Topic{}).
			Where("id = ?", assignment.TopicID).
			Update("needs_attention", false).Error; err != nil {
			return err
		}

		if assignment.AssignedTo.Type == models.AssigneeUser {
			action := models.UserAction{
				ActionType:    models.ActionAssigned,
				UserID:        assignment.AssignedTo.ID,
				ActingUserID:  assignment.AssignedByID,
				TargetTopicID: assignment.TopicID,
			}
			if err := tx.Create(&action).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return previous, nil
}

// DeleteByTopic removes the topic's assignment and returns the deleted row
func (r *GormAssignmentRepository) DeleteByTopic(topicID uint64) (*models.Assignment, error) {
	var deleted *models.Assignment

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Assignment
		err := tx.Where("topic_id = ?", topicID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(&models.Assignment{}, existing.ID).Error; err != nil {
			return err
		}

		deleted = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

// ListActive returns every active assignment
func (r *GormAssignmentRepository) ListActive() ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.Preload("Topic").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListByAssignedUser returns all assignments held directly by a user
func (r *GormAssignmentRepository) ListByAssignedUser(userID uint64) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.
		Where("assigned_to_type = ? AND assigned_to_id = ?", models.AssigneeUser, userID).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateLastRemindedAt stamps the reminder timestamp on an assignment
func (r *GormAssignmentRepository) UpdateLastRemindedAt(assignmentID uint64, at time.Time) error {
	result := r.db.Model(&models.Assignment{}).
		Where("id = ?", assignmentID).
		Update("last_reminded_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountForGroup counts assignments held by the group or any of its members
func (r *GormAssignmentRepository) CountForGroup(groupID uint64, memberIDs []uint64) (int64, error) {
	var count int64

	query := r.db.Model(&models.Assignment{})
	if len(memberIDs) > 0 {
		query = query.Where(
			"(assigned_to_type = ? AND assigned_to_id = ?) OR (assigned_to_type = ? AND assigned_to_id IN ?)",
			models.AssigneeGroup, groupID, models.AssigneeUser, memberIDs,
		)
	} else {
		query = query.Where("assigned_to_type = ? AND assigned_to_id = ?", models.AssigneeGroup, groupID)
	}

	err := query.Count(&count).Error
	return count, err
}
