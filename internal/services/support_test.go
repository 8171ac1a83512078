package services

import (
	"context"

	"github.com/hoshifuri/topic-assign-api/internal/config"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/notify"
	"github.com/hoshifuri/topic-assign-api/internal/settings"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB creates an in-memory SQLite database with all tables migrated.
func openTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Topic{},
		&models.Post{},
		&models.Assignment{},
		&models.UserAction{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// testEngineSettings builds settings with the engine enabled and the given
// allow-list.
func testEngineSettings(allowList string) *settings.Settings {
	return settings.Load(&config.Config{
		AssignEnabled:         true,
		AssignAllowedOnGroups: allowList,
	})
}

type sentNotification struct {
	UserIDs []uint64
	Kind    notify.Kind
	Payload notify.Payload
}

// fakeNotificationSink records notifications instead of publishing them.
type fakeNotificationSink struct {
	sent []sentNotification
}

func (f *fakeNotificationSink) Notify(_ context.Context, userIDs []uint64, kind notify.Kind, payload notify.Payload) error {
	f.sent = append(f.sent, sentNotification{UserIDs: userIDs, Kind: kind, Payload: payload})
	return nil
}

func (f *fakeNotificationSink) reset() {
	f.sent = nil
}

type emittedWebhook struct {
	Event   string
	Payload notify.Payload
}

// fakeWebhookSink records webhook events instead of publishing them.
type fakeWebhookSink struct {
	emitted []emittedWebhook
}

func (f *fakeWebhookSink) Emit(_ context.Context, event string, payload notify.Payload) error {
	f.emitted = append(f.emitted, emittedWebhook{Event: event, Payload: payload})
	return nil
}

func (f *fakeWebhookSink) reset() {
	f.emitted = nil
}

type trackingPublish struct {
	Channel string
	UserIDs []uint64
}

// fakeTrackingPublisher records tracking-state publishes.
type fakeTrackingPublisher struct {
	published []trackingPublish
}

func (f *fakeTrackingPublisher) Publish(_ context.Context, channel string, _ any, targetUserIDs []uint64) error {
	f.published = append(f.published, trackingPublish{Channel: channel, UserIDs: targetUserIDs})
	return nil
}

func (f *fakeTrackingPublisher) reset() {
	f.published = nil
}
