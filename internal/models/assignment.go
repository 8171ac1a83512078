package models

import (
	"time"
)

// AssigneeType tags the polymorphic assignment target.
type AssigneeType string

const (
	AssigneeUser  AssigneeType = "User"
	AssigneeGroup AssigneeType = "Group"
)

// Assignee is the tagged reference to a user or group that owns a topic.
// Every consumer (serializer, filter, notifier) matches on Type explicitly.
type Assignee struct {
	Type AssigneeType `gorm:"column:assigned_to_type;type:varchar(10);not null" json:"type"`
	ID   uint64       `gorm:"column:assigned_to_id;not null" json:"id"`
}

// UserAssignee builds an Assignee pointing at a user.
func UserAssignee(id uint64) Assignee {
	return Assignee{Type: AssigneeUser, ID: id}
}

// GroupAssignee builds an Assignee pointing at a group.
func GroupAssignee(id uint64) Assignee {
	return Assignee{Type: AssigneeGroup, ID: id}
}

// Assignment binds one topic to exactly one user or group. The unique index
// on TopicID is what enforces the at-most-one-owner invariant.
type Assignment struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	TopicID        uint64     `gorm:"uniqueIndex;not null" json:"topic_id"`
	AssignedTo     Assignee   `gorm:"embedded" json:"assigned_to"`
	AssignedByID   uint64     `gorm:"not null" json:"assigned_by_id"`
	Note           string     `gorm:"type:text" json:"note"`
	ActiveSince    time.Time  `gorm:"not null" json:"active_since"`
	LastRemindedAt *time.Time `json:"last_reminded_at"`
	CreatedAt      time.Time  `json:"created_at"`

	// Relations
	Topic Topic `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
}
