package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hoshifuri/topic-assign-api/internal/config"
	"github.com/hoshifuri/topic-assign-api/internal/database"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/notify"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/hoshifuri/topic-assign-api/internal/services"
	"github.com/hoshifuri/topic-assign-api/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// discardSink drops notifications, webhooks and tracking publishes; handler
// tests only care about HTTP behavior and stored state.
type discardSink struct{}

func (discardSink) Notify(context.Context, []uint64, notify.Kind, notify.Payload) error { return nil }
func (discardSink) Emit(context.Context, string, notify.Payload) error                  { return nil }
func (discardSink) Publish(context.Context, string, any, []uint64) error                { return nil }

// AssignHandlerTestSuite defines the test suite for AssignHandler
type AssignHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	settings *settings.Settings
	assigner *services.AssignerService
	handler  *AssignHandler
}

// SetupTest runs before each test
func (suite *AssignHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Topic{},
		&models.Post{},
		&models.Assignment{},
		&models.UserAction{},
	)
	suite.Require().NoError(err)

	// Set the test DB as the default database
	database.SetDB(suite.db)

	suite.settings = settings.Load(&config.Config{
		AssignEnabled:         true,
		AssignAllowedOnGroups: "staff",
	})

	users := repository.NewUserRepository(suite.db)
	groups := repository.NewGroupRepository(suite.db)
	eligibility := services.NewEligibilityService(suite.settings, groups)

	suite.assigner = services.NewAssignerService(
		repository.NewAssignmentRepository(suite.db),
		repository.NewTopicRepository(suite.db),
		users,
		groups,
		eligibility,
		suite.settings,
		discardSink{}, discardSink{}, discardSink{},
		zap.NewNop(),
	)

	suite.handler = NewAssignHandler(
		suite.assigner,
		eligibility,
		services.NewAuthService(users),
		users,
		groups,
	)

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *AssignHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper functions to create test data
func (suite *AssignHandlerTestSuite) createTestUser(username string, admin bool) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Admin:        admin,
	}
	suite.db.Create(user)
	return user
}

func (suite *AssignHandlerTestSuite) createTestGroup(name string, level models.AssignableLevel) *models.Group {
	group := &models.Group{Name: name, AssignableLevel: level}
	suite.db.Create(group)
	return group
}

func (suite *AssignHandlerTestSuite) createTestTopic(title string) *models.Topic {
	topic := &models.Topic{Title: title}
	suite.db.Create(topic)
	return topic
}

// Helper function to create authenticated context
func (suite *AssignHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("user_id", userID)

	return c, w
}

// TestAssign_Success tests assigning a topic to a user over HTTP
func (suite *AssignHandlerTestSuite) TestAssign_Success() {
	admin := suite.createTestUser("admin", true)
	suite.createTestUser("bob", false)
	topic := suite.createTestTopic("Broken deploy")

	body, _ := json.Marshal(map[string]any{
		"topic_id": topic.ID,
		"username": "bob",
		"note":     "please look",
	})
	c, w := suite.createAuthContext("PUT", "/api/assign/assign", body, admin.ID)

	suite.handler.Assign(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), topic.ID, response["topic_id"])
	assert.Equal(suite.T(), "please look", response["note"])

	assignedTo := response["assigned_to_user"].(map[string]interface{})
	assert.Equal(suite.T(), "bob", assignedTo["username"])
}

// TestAssign_GroupTarget tests assigning a topic to a group over HTTP
func (suite *AssignHandlerTestSuite) TestAssign_GroupTarget() {
	admin := suite.createTestUser("admin", true)
	suite.createTestGroup("staff", models.AssignableLevelEveryone)
	topic := suite.createTestTopic("Team task")

	body, _ := json.Marshal(map[string]any{
		"topic_id":   topic.ID,
		"group_name": "staff",
	})
	c, w := suite.createAuthContext("PUT", "/api/assign/assign", body, admin.ID)

	suite.handler.Assign(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	assignedTo := response["assigned_to_group"].(map[string]interface{})
	assert.Equal(suite.T(), "staff", assignedTo["name"])
}

// TestAssign_TopicNotFound tests assigning a missing topic
func (suite *AssignHandlerTestSuite) TestAssign_TopicNotFound() {
	admin := suite.createTestUser("admin", true)
	suite.createTestUser("bob", false)

	body, _ := json.Marshal(map[string]any{
		"topic_id": 9999,
		"username": "bob",
	})
	c, w := suite.createAuthContext("PUT", "/api/assign/assign", body, admin.ID)

	suite.handler.Assign(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestAssign_UnknownTarget tests assigning to a missing user
func (suite *AssignHandlerTestSuite) TestAssign_UnknownTarget() {
	admin := suite.createTestUser("admin", true)
	topic := suite.createTestTopic("Orphan")

	body, _ := json.Marshal(map[string]any{
		"topic_id": topic.ID,
		"username": "ghost",
	})
	c, w := suite.createAuthContext("PUT", "/api/assign/assign", body, admin.ID)

	suite.handler.Assign(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestAssign_ForbiddenActor tests the eligibility gate over HTTP
func (suite *AssignHandlerTestSuite) TestAssign_ForbiddenActor() {
	outsider := suite.createTestUser("outsider", false)
	suite.createTestUser("bob", false)
	topic := suite.createTestTopic("Guarded")

	body, _ := json.Marshal(map[string]any{
		"topic_id": topic.ID,
		"username": "bob",
	})
	c, w := suite.createAuthContext("PUT", "/api/assign/assign", body, outsider.ID)

	suite.handler.Assign(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestAssign_MissingTarget tests a request naming neither user nor group
func (suite *AssignHandlerTestSuite) TestAssign_MissingTarget() {
	admin := suite.createTestUser("admin", true)
	topic := suite.createTestTopic("Nowhere")

	body, _ := json.Marshal(map[string]any{
		"topic_id": topic.ID,
	})
	c, w := suite.createAuthContext("PUT", "/api/assign/assign", body, admin.ID)

	suite.handler.Assign(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestUnassign_Success tests unassigning over HTTP
func (suite *AssignHandlerTestSuite) TestUnassign_Success() {
	admin := suite.createTestUser("admin", true)
	bob := suite.createTestUser("bob", false)
	topic := suite.createTestTopic("Done")

	_, err := suite.assigner.Assign(context.Background(), services.AssignInput{
		TopicID: topic.ID,
		Target:  models.UserAssignee(bob.ID),
		ActorID: admin.ID,
	})
	suite.Require().NoError(err)

	body, _ := json.Marshal(map[string]any{"topic_id": topic.ID})
	c, w := suite.createAuthContext("PUT", "/api/assign/unassign", body, admin.ID)

	suite.handler.Unassign(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	remaining, err := suite.assigner.FindAssignment(topic.ID)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), remaining)
}

// TestClaim_Success tests self-assignment over HTTP
func (suite *AssignHandlerTestSuite) TestClaim_Success() {
	admin := suite.createTestUser("admin", true)
	topic := suite.createTestTopic("Mine now")

	c, w := suite.createAuthContext("PUT", "/api/assign/claim/1", nil, admin.ID)
	c.Params = gin.Params{{Key: "topic_id", Value: "1"}}

	suite.handler.Claim(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	assignment, err := suite.assigner.FindAssignment(topic.ID)
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(assignment)
	assert.Equal(suite.T(), admin.ID, assignment.AssignedTo.ID)
}

// TestClaim_InvalidTopicID tests a malformed topic id
func (suite *AssignHandlerTestSuite) TestClaim_InvalidTopicID() {
	admin := suite.createTestUser("admin", true)

	c, w := suite.createAuthContext("PUT", "/api/assign/claim/abc", nil, admin.ID)
	c.Params = gin.Params{{Key: "topic_id", Value: "abc"}}

	suite.handler.Claim(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestBulk_ReportsPerTopicFailures tests partial bulk success
func (suite *AssignHandlerTestSuite) TestBulk_ReportsPerTopicFailures() {
	admin := suite.createTestUser("admin", true)
	suite.createTestUser("bob", false)
	topic := suite.createTestTopic("Exists")

	body, _ := json.Marshal(map[string]any{
		"topic_ids": []uint64{topic.ID, 9999},
		"operation": "assign",
		"username":  "bob",
	})
	c, w := suite.createAuthContext("POST", "/api/assign/bulk", body, admin.ID)

	suite.handler.Bulk(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, response["processed"])

	failed := response["failed"].(map[string]interface{})
	assert.Contains(suite.T(), failed, "9999")
}

// TestBulk_Unassign tests bulk unassignment
func (suite *AssignHandlerTestSuite) TestBulk_Unassign() {
	admin := suite.createTestUser("admin", true)
	bob := suite.createTestUser("bob", false)
	topicA := suite.createTestTopic("First")
	topicB := suite.createTestTopic("Second")

	for _, id := range []uint64{topicA.ID, topicB.ID} {
		_, err := suite.assigner.Assign(context.Background(), services.AssignInput{
			TopicID: id,
			Target:  models.UserAssignee(bob.ID),
			ActorID: admin.ID,
		})
		suite.Require().NoError(err)
	}

	body, _ := json.Marshal(map[string]any{
		"topic_ids": []uint64{topicA.ID, topicB.ID},
		"operation": "unassign",
	})
	c, w := suite.createAuthContext("POST", "/api/assign/bulk", body, admin.ID)

	suite.handler.Bulk(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Assignment{}).Count(&count)
	assert.EqualValues(suite.T(), 0, count)
}

// TestAssignableGroups_Success tests listing assignable groups over HTTP
func (suite *AssignHandlerTestSuite) TestAssignableGroups_Success() {
	admin := suite.createTestUser("admin", true)
	suite.createTestGroup("staff", models.AssignableLevelEveryone)
	suite.createTestGroup("readers", models.AssignableLevelEveryone)

	c, w := suite.createAuthContext("GET", "/api/assign/assignable-groups", nil, admin.ID)

	suite.handler.AssignableGroups(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	groups := response["groups"].([]interface{})
	suite.Require().Len(groups, 1)
	first := groups[0].(map[string]interface{})
	assert.Equal(suite.T(), "staff", first["name"])
}

func TestAssignHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AssignHandlerTestSuite))
}
