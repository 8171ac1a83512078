package models

import (
	"time"

	"gorm.io/gorm"
)

// ReminderFrequency is the per-user reminder interval in minutes.
type ReminderFrequency int

const (
	RemindNever          ReminderFrequency = 0
	RemindDaily          ReminderFrequency = 1440
	RemindWeekly         ReminderFrequency = 10080
	RemindEveryTwoWeeks  ReminderFrequency = 20160
	RemindEveryFourWeeks ReminderFrequency = 40320
	// RemindOnEveryPost only applies to private messages; the periodic
	// sweep treats it like a daily reminder.
	RemindOnEveryPost ReminderFrequency = -1
)

// Interval returns the duration implied by the frequency, or zero for "never".
func (f ReminderFrequency) Interval() time.Duration {
	if f == RemindOnEveryPost {
		return time.Duration(RemindDaily) * time.Minute
	}
	if f <= 0 {
		return 0
	}
	return time.Duration(f) * time.Minute
}

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Admin        bool           `gorm:"not null;default:false" json:"admin"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Assignment-related profile fields, editable via PATCH /profile.
	RemindersFrequency ReminderFrequency `gorm:"not null;default:0" json:"reminders_frequency"`
	OnHoliday          bool              `gorm:"not null;default:false" json:"on_holiday"`
	WorkingHourStart   int               `gorm:"not null;default:8" json:"working_hour_start"`
	WorkingHourEnd     int               `gorm:"not null;default:18" json:"working_hour_end"`
	Timezone           string            `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`

	// Relations
	Memberships []GroupMember `gorm:"foreignKey:UserID" json:"-"`
}

// InWorkingHours reports whether the given instant falls inside the user's
// configured working window, evaluated in the user's timezone.
func (u *User) InWorkingHours(now time.Time) bool {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()
	return hour >= u.WorkingHourStart && hour < u.WorkingHourEnd
}
