package dto

import (
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// GroupDTO represents a group in API responses
type GroupDTO struct {
	ID              uint64                 `json:"id"`
	Name            string                 `json:"name"`
	AssignableLevel models.AssignableLevel `json:"assignable_level"`
}

// AssignmentDTO represents an assignment in API responses. Exactly one of
// AssignedToUser / AssignedToGroup is set, matching the assignee tag.
type AssignmentDTO struct {
	TopicID         uint64     `json:"topic_id"`
	AssignedToUser  *UserDTO   `json:"assigned_to_user,omitempty"`
	AssignedToGroup *GroupDTO  `json:"assigned_to_group,omitempty"`
	AssignedByID    uint64     `json:"assigned_by_id"`
	Note            string     `json:"note,omitempty"`
	ActiveSince     time.Time  `json:"active_since"`
	LastRemindedAt  *time.Time `json:"last_reminded_at,omitempty"`
}

// TopicDTO represents a topic in list responses. Assignment data is only
// populated when the viewer may see it.
type TopicDTO struct {
	ID              uint64           `json:"id"`
	Title           string           `json:"title"`
	Archetype       models.Archetype `json:"archetype"`
	Closed          bool             `json:"closed"`
	Archived        bool             `json:"archived"`
	CreatedAt       time.Time        `json:"created_at"`
	AssignedToUser  *UserDTO         `json:"assigned_to_user,omitempty"`
	AssignedToGroup *GroupDTO        `json:"assigned_to_group,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToGroupDTO converts a Group model to GroupDTO
func ToGroupDTO(group models.Group) GroupDTO {
	return GroupDTO{
		ID:              group.ID,
		Name:            group.Name,
		AssignableLevel: group.AssignableLevel,
	}
}

// ToAssignmentDTO converts an Assignment plus its resolved assignee into an
// AssignmentDTO.
func ToAssignmentDTO(a models.Assignment, user *models.User, group *models.Group) AssignmentDTO {
	d := AssignmentDTO{
		TopicID:        a.TopicID,
		AssignedByID:   a.AssignedByID,
		Note:           a.Note,
		ActiveSince:    a.ActiveSince,
		LastRemindedAt: a.LastRemindedAt,
	}

	switch a.AssignedTo.Type {
	case models.AssigneeUser:
		if user != nil {
			u := ToUserDTO(*user)
			d.AssignedToUser = &u
		}
	case models.AssigneeGroup:
		if group != nil {
			g := ToGroupDTO(*group)
			d.AssignedToGroup = &g
		}
	}

	return d
}

// ToTopicDTO converts a Topic model to TopicDTO. The assignment fields are
// filled in separately by the handler when visible.
func ToTopicDTO(topic models.Topic) TopicDTO {
	return TopicDTO{
		ID:        topic.ID,
		Title:     topic.Title,
		Archetype: topic.Archetype,
		Closed:    topic.Closed,
		Archived:  topic.Archived,
		CreatedAt: topic.CreatedAt,
	}
}
