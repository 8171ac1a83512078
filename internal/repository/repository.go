package repository

import (
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/models"
)

// AssignmentRepository defines the Assignment Store's CRUD contract.
type AssignmentRepository interface {
	// FindByTopic finds the active assignment for a topic.
	FindByTopic(topicID uint64) (*models.Assignment, error)

	// Replace atomically removes any existing assignment for the topic,
	// inserts the new one, clears the topic's needs-attention flag and
	// records the activity-log row. Returns the replaced assignment, if any.
	Replace(assignment *models.Assignment) (*models.Assignment, error)

	// DeleteByTopic removes the active assignment for a topic and returns
	// it; returns nil when the topic was not assigned.
	DeleteByTopic(topicID uint64) (*models.Assignment, error)

	// ListActive returns every active assignment.
	ListActive() ([]models.Assignment, error)

	// ListByAssignedUser returns all assignments held by a user.
	ListByAssignedUser(userID uint64) ([]models.Assignment, error)

	// UpdateLastRemindedAt stamps the reminder timestamp on an assignment.
	// Returns gorm.ErrRecordNotFound when the assignment no longer exists.
	UpdateLastRemindedAt(assignmentID uint64, at time.Time) error

	// CountForGroup counts assignments held by the group itself or by any
	// of its members.
	CountForGroup(groupID uint64, memberIDs []uint64) (int64, error)
}

// TopicRepository defines topic data access needed by the engine.
type TopicRepository interface {
	// FindByID finds a topic by ID with optional preloading.
	FindByID(id uint64, preload ...string) (*models.Topic, error)

	// Update saves topic changes (snapshot fields, flags).
	Update(topic *models.Topic) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindByIDs loads a set of users by id
	FindByIDs(ids []uint64) ([]models.User, error)

	// Update saves user profile changes
	Update(user *models.User) error
}

// GroupRepository exposes the platform's group/membership data (read side)
// plus the rename/delete mutations the allow-list hooks react to.
type GroupRepository interface {
	// FindByID finds a group by ID
	FindByID(id uint64) (*models.Group, error)

	// FindByName finds a group by name
	FindByName(name string) (*models.Group, error)

	// Members returns the users belonging to a group
	Members(groupID uint64) ([]models.User, error)

	// MemberIDs returns the ids of the users belonging to a group
	MemberIDs(groupID uint64) ([]uint64, error)

	// UserGroups returns the groups a user belongs to
	UserGroups(userID uint64) ([]models.Group, error)

	// IsMember reports whether a user belongs to a group
	IsMember(groupID, userID uint64) (bool, error)

	// IsOwner reports whether a user is an owner of a group
	IsOwner(groupID, userID uint64) (bool, error)

	// ListByNames loads groups matching the given names
	ListByNames(names []string) ([]models.Group, error)
}

// ActionRepository reads and writes the generic user-activity log, filtered
// to "assigned" actions.
type ActionRepository interface {
	// RecentAssignees returns the distinct users assigned to a topic since
	// the given time, most recent first, capped at limit.
	RecentAssignees(topicID uint64, since time.Time, limit int) ([]uint64, error)

	// AssigneesSince returns the distinct users assigned to a topic at any
	// point after the given time.
	AssigneesSince(topicID uint64, since time.Time) ([]uint64, error)

	// LastAssignedAt returns the time of the most recent assignment action
	// on a topic, or nil if there has never been one.
	LastAssignedAt(topicID uint64) (*time.Time, error)
}
