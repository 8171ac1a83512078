package models

import "time"

// Action types recorded in the activity log.
const (
	ActionAssigned = "assigned"
)

// UserAction is a row in the generic user-activity log. The assignment engine
// writes "assigned" rows and reads them back as the random distributor's
// recent-assignment history; it does not own the log.
type UserAction struct {
	ID            uint64    `gorm:"primarykey" json:"id"`
	ActionType    string    `gorm:"type:varchar(32);not null;index" json:"action_type"`
	UserID        uint64    `gorm:"not null;index" json:"user_id"`
	ActingUserID  uint64    `gorm:"not null" json:"acting_user_id"`
	TargetTopicID uint64    `gorm:"not null;index" json:"target_topic_id"`
	CreatedAt     time.Time `json:"created_at"`
}
