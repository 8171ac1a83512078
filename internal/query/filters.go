package query

import (
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"gorm.io/gorm"
)

// Scopes translating assignment search filters into predicates over topics.
// Callers gate access (can-assign or public assigns) before applying them.

// InAssigned keeps topics that currently have an owner (in:assigned, and the
// assigned:"*" wildcard).
func InAssigned(db *gorm.DB) *gorm.DB {
	return db.Where("topics.id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Assignment{}).Select("topic_id"),
	)
}

// InUnassigned keeps topics without an owner (in:unassigned, assigned:nobody).
func InUnassigned(db *gorm.DB) *gorm.DB {
	return db.Where("topics.id NOT IN (?)",
		db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Assignment{}).Select("topic_id"),
	)
}

// AssignedToUser keeps topics owned directly by the user.
func AssignedToUser(userID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("topics.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&models.Assignment{}).Select("topic_id").
				Where("assigned_to_type = ? AND assigned_to_id = ?", models.AssigneeUser, userID),
		)
	}
}

// AssignedToGroup keeps topics owned by the group itself.
func AssignedToGroup(groupID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("topics.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&models.Assignment{}).Select("topic_id").
				Where("assigned_to_type = ? AND assigned_to_id = ?", models.AssigneeGroup, groupID),
		)
	}
}

// AssignedToUserOrGroups keeps topics owned by the user directly or by any
// of the given groups (the "messages assigned to me" view).
func AssignedToUserOrGroups(userID uint64, groupIDs []uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Assignment{}).Select("topic_id")
		if len(groupIDs) > 0 {
			sub = sub.Where(
				"(assigned_to_type = ? AND assigned_to_id = ?) OR (assigned_to_type = ? AND assigned_to_id IN ?)",
				models.AssigneeUser, userID, models.AssigneeGroup, groupIDs,
			)
		} else {
			sub = sub.Where("assigned_to_type = ? AND assigned_to_id = ?", models.AssigneeUser, userID)
		}
		return db.Where("topics.id IN (?)", sub)
	}
}

// AssignedToGroupOrMembers keeps topics owned by the group or by any of its
// members (the group "assigned" tab).
func AssignedToGroupOrMembers(groupID uint64, memberIDs []uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Assignment{}).Select("topic_id")
		if len(memberIDs) > 0 {
			sub = sub.Where(
				"(assigned_to_type = ? AND assigned_to_id = ?) OR (assigned_to_type = ? AND assigned_to_id IN ?)",
				models.AssigneeGroup, groupID, models.AssigneeUser, memberIDs,
			)
		} else {
			sub = sub.Where("assigned_to_type = ? AND assigned_to_id = ?", models.AssigneeGroup, groupID)
		}
		return db.Where("topics.id IN (?)", sub)
	}
}
