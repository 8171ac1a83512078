package models

import (
	"time"

	"gorm.io/gorm"
)

// Archetype distinguishes regular topics from private messages.
type Archetype string

const (
	ArchetypeRegular        Archetype = "regular"
	ArchetypePrivateMessage Archetype = "private_message"
)

type Topic struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	Title     string         `gorm:"not null" json:"title"`
	Archetype Archetype      `gorm:"type:varchar(20);not null;default:'regular'" json:"archetype"`
	Closed    bool           `gorm:"not null;default:false" json:"closed"`
	Archived  bool           `gorm:"not null;default:false" json:"archived"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// NeedsAttention marks a topic whose latest activity has not been seen
	// by an assignee yet; assigning clears it.
	NeedsAttention bool `gorm:"not null;default:false" json:"needs_attention"`

	// Recovery snapshot written when a group archives an assigned message,
	// read back when the message returns to the inbox.
	PrevAssignedToID   *uint64       `json:"-"`
	PrevAssignedToType *AssigneeType `gorm:"type:varchar(10)" json:"-"`

	// Relations
	Assignment *Assignment `gorm:"foreignKey:TopicID" json:"assignment,omitempty"`
	Posts      []Post      `gorm:"foreignKey:TopicID" json:"posts,omitempty"`
}

// PrivateMessage reports whether the topic is a private message.
func (t *Topic) PrivateMessage() bool {
	return t.Archetype == ArchetypePrivateMessage
}

type Post struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	TopicID   uint64         `gorm:"not null;index" json:"topic_id"`
	AuthorID  uint64         `gorm:"not null" json:"author_id"`
	Raw       string         `gorm:"type:text" json:"raw"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Topic  Topic `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Author User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
