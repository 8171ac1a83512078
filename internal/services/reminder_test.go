package services

import (
	"context"
	"testing"
	"time"

	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/notify"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReminderServiceTestSuite defines the test suite for ReminderService
type ReminderServiceTestSuite struct {
	suite.Suite
	db            *gorm.DB
	notifications *fakeNotificationSink
	reminders     *ReminderService
	now           time.Time
}

// SetupTest runs before each test
func (suite *ReminderServiceTestSuite) SetupTest() {
	var err error
	suite.db, err = openTestDB()
	suite.Require().NoError(err)

	suite.notifications = &fakeNotificationSink{}
	suite.reminders = NewReminderService(
		repository.NewAssignmentRepository(suite.db),
		repository.NewUserRepository(suite.db),
		suite.notifications,
		0,
		zap.NewNop(),
	)
	suite.now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
}

// TearDownTest runs after each test
func (suite *ReminderServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ReminderServiceTestSuite) createTestUser(username string, freq models.ReminderFrequency) *models.User {
	user := &models.User{
		Username:           username,
		PasswordHash:       "hashedpassword",
		RemindersFrequency: freq,
	}
	suite.db.Create(user)
	return user
}

func (suite *ReminderServiceTestSuite) createAssignedTopic(title string, assignee models.Assignee, activeSince time.Time) *models.Assignment {
	topic := &models.Topic{Title: title}
	suite.db.Create(topic)

	assignment := &models.Assignment{
		TopicID:     topic.ID,
		AssignedTo:  assignee,
		ActiveSince: activeSince,
	}
	suite.db.Create(assignment)
	return assignment
}

// TestSweep_SendsDueReminder tests a stale daily assignment
func (suite *ReminderServiceTestSuite) TestSweep_SendsDueReminder() {
	user := suite.createTestUser("bob", models.RemindDaily)
	assignment := suite.createAssignedTopic("Stale", models.UserAssignee(user.ID), suite.now.Add(-25*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, sent)
	suite.Require().Len(suite.notifications.sent, 1)
	assert.Equal(suite.T(), notify.KindReminder, suite.notifications.sent[0].Kind)
	assert.Equal(suite.T(), []uint64{user.ID}, suite.notifications.sent[0].UserIDs)
	assert.Equal(suite.T(), assignment.TopicID, suite.notifications.sent[0].Payload.TopicID)

	var reloaded models.Assignment
	suite.db.First(&reloaded, assignment.ID)
	suite.Require().NotNil(reloaded.LastRemindedAt)
	assert.WithinDuration(suite.T(), suite.now, *reloaded.LastRemindedAt, time.Second)
}

// TestSweep_SecondSweepNotDue tests that the stamp resets the interval
func (suite *ReminderServiceTestSuite) TestSweep_SecondSweepNotDue() {
	user := suite.createTestUser("bob", models.RemindDaily)
	suite.createAssignedTopic("Stale", models.UserAssignee(user.ID), suite.now.Add(-25*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)
	suite.Require().NoError(err)
	suite.Require().Equal(1, sent)
	suite.notifications.reset()

	sent, err = suite.reminders.Sweep(context.Background(), suite.now.Add(time.Hour))

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, sent)
	assert.Empty(suite.T(), suite.notifications.sent)
}

// TestSweep_DueAgainAfterInterval tests the recurring reminder
func (suite *ReminderServiceTestSuite) TestSweep_DueAgainAfterInterval() {
	user := suite.createTestUser("bob", models.RemindDaily)
	suite.createAssignedTopic("Stale", models.UserAssignee(user.ID), suite.now.Add(-25*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)
	suite.Require().NoError(err)
	suite.Require().Equal(1, sent)

	sent, err = suite.reminders.Sweep(context.Background(), suite.now.Add(25*time.Hour))

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, sent)
}

// TestSweep_NeverFrequencySkipped tests the "never" opt-out
func (suite *ReminderServiceTestSuite) TestSweep_NeverFrequencySkipped() {
	user := suite.createTestUser("bob", models.RemindNever)
	suite.createAssignedTopic("Ancient", models.UserAssignee(user.ID), suite.now.Add(-30*24*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, sent)
}

// TestSweep_FreshAssignmentNotDue tests an assignment inside the interval
func (suite *ReminderServiceTestSuite) TestSweep_FreshAssignmentNotDue() {
	user := suite.createTestUser("bob", models.RemindDaily)
	suite.createAssignedTopic("Fresh", models.UserAssignee(user.ID), suite.now.Add(-time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, sent)
}

// TestSweep_WeeklyNotDueAfterOneDay tests a longer frequency
func (suite *ReminderServiceTestSuite) TestSweep_WeeklyNotDueAfterOneDay() {
	user := suite.createTestUser("bob", models.RemindWeekly)
	suite.createAssignedTopic("Weekly", models.UserAssignee(user.ID), suite.now.Add(-25*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, sent)
}

// TestSweep_OnEveryPostTreatedAsDaily tests the post-frequency fallback
func (suite *ReminderServiceTestSuite) TestSweep_OnEveryPostTreatedAsDaily() {
	user := suite.createTestUser("bob", models.RemindOnEveryPost)
	suite.createAssignedTopic("Chatty", models.UserAssignee(user.ID), suite.now.Add(-25*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, sent)
}

// TestSweep_GroupAssignmentsSkipped tests that only users are reminded
func (suite *ReminderServiceTestSuite) TestSweep_GroupAssignmentsSkipped() {
	group := &models.Group{Name: "staff", AssignableLevel: models.AssignableLevelEveryone}
	suite.db.Create(group)
	suite.createAssignedTopic("Team owned", models.GroupAssignee(group.ID), suite.now.Add(-30*24*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, sent)
}

// TestSweep_MaxPerSweepCapsSends tests the per-sweep cap
func (suite *ReminderServiceTestSuite) TestSweep_MaxPerSweepCapsSends() {
	capped := NewReminderService(
		repository.NewAssignmentRepository(suite.db),
		repository.NewUserRepository(suite.db),
		suite.notifications,
		1,
		zap.NewNop(),
	)
	alice := suite.createTestUser("alice", models.RemindDaily)
	bob := suite.createTestUser("bob", models.RemindDaily)
	suite.createAssignedTopic("First", models.UserAssignee(alice.ID), suite.now.Add(-25*time.Hour))
	suite.createAssignedTopic("Second", models.UserAssignee(bob.ID), suite.now.Add(-25*time.Hour))

	sent, err := capped.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, sent)
	assert.Len(suite.T(), suite.notifications.sent, 1)
}

// TestSweep_DeletedAssigneeSkipped tests the missing-user path
func (suite *ReminderServiceTestSuite) TestSweep_DeletedAssigneeSkipped() {
	suite.createAssignedTopic("Orphaned", models.UserAssignee(9999), suite.now.Add(-30*24*time.Hour))

	sent, err := suite.reminders.Sweep(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, sent)
}

func TestReminderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReminderServiceTestSuite))
}
