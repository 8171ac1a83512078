package models

import (
	"time"

	"gorm.io/gorm"
)

// AssignableLevel controls who may pick a group as an assignment target.
type AssignableLevel int

const (
	AssignableLevelNobody AssignableLevel = iota
	AssignableLevelEveryone
	AssignableLevelMembersModsAndAdmins
	AssignableLevelOwnersModsAndAdmins
)

type Group struct {
	ID              uint64          `gorm:"primarykey" json:"id"`
	Name            string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	AssignableLevel AssignableLevel `gorm:"not null;default:0" json:"assignable_level"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Members []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

type GroupMember struct {
	GroupID  uint64    `gorm:"primarykey" json:"group_id"`
	UserID   uint64    `gorm:"primarykey" json:"user_id"`
	Owner    bool      `gorm:"not null;default:false" json:"owner"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
