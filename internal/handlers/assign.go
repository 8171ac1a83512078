package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hoshifuri/topic-assign-api/internal/dto"
	apierrors "github.com/hoshifuri/topic-assign-api/internal/errors"
	"github.com/hoshifuri/topic-assign-api/internal/middleware"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/hoshifuri/topic-assign-api/internal/services"
	"gorm.io/gorm"
)

// AssignHandler exposes the assign/unassign/claim/bulk operations.
type AssignHandler struct {
	assigner    *services.AssignerService
	eligibility *services.EligibilityService
	authService *services.AuthService
	users       repository.UserRepository
	groups      repository.GroupRepository
}

// NewAssignHandler creates a new AssignHandler
func NewAssignHandler(
	assigner *services.AssignerService,
	eligibility *services.EligibilityService,
	authService *services.AuthService,
	users repository.UserRepository,
	groups repository.GroupRepository,
) *AssignHandler {
	return &AssignHandler{
		assigner:    assigner,
		eligibility: eligibility,
		authService: authService,
		users:       users,
		groups:      groups,
	}
}

// Assign assigns a topic to a user or group.
func (h *AssignHandler) Assign(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type AssignRequest struct {
		TopicID   uint64 `json:"topic_id" binding:"required"`
		Username  string `json:"username"`
		GroupName string `json:"group_name"`
		Note      string `json:"note"`
		Force     bool   `json:"force"`
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	target, err := h.resolveTarget(req.Username, req.GroupName)
	if err != nil {
		respondAssignError(c, err)
		return
	}

	assignment, err := h.assigner.Assign(c.Request.Context(), services.AssignInput{
		TopicID: req.TopicID,
		Target:  target,
		ActorID: userID,
		Note:    req.Note,
		Force:   req.Force,
	})
	if err != nil {
		respondAssignError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.assignmentDTO(*assignment))
}

// Unassign removes a topic's assignment.
func (h *AssignHandler) Unassign(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type UnassignRequest struct {
		TopicID uint64 `json:"topic_id" binding:"required"`
	}

	var req UnassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.assigner.Unassign(c.Request.Context(), req.TopicID, userID, false); err != nil {
		respondAssignError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Claim assigns the topic to the calling user.
func (h *AssignHandler) Claim(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	topicID, err := strconv.ParseUint(c.Param("topic_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid topic ID")
		return
	}

	assignment, err := h.assigner.Assign(c.Request.Context(), services.AssignInput{
		TopicID: topicID,
		Target:  models.UserAssignee(userID),
		ActorID: userID,
	})
	if err != nil {
		respondAssignError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.assignmentDTO(*assignment))
}

// Bulk assigns or unassigns a set of topics. Each topic is processed
// independently; failures are reported per topic.
func (h *AssignHandler) Bulk(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type BulkRequest struct {
		TopicIDs  []uint64 `json:"topic_ids" binding:"required"`
		Operation string   `json:"operation" binding:"required,oneof=assign unassign"`
		Username  string   `json:"username"`
	}

	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var target models.Assignee
	if req.Operation == "assign" {
		var err error
		target, err = h.resolveTarget(req.Username, "")
		if err != nil {
			respondAssignError(c, err)
			return
		}
	}

	failed := make(map[string]string)
	for _, topicID := range req.TopicIDs {
		var err error
		if req.Operation == "assign" {
			_, err = h.assigner.Assign(c.Request.Context(), services.AssignInput{
				TopicID: topicID,
				Target:  target,
				ActorID: userID,
				Force:   true,
			})
		} else {
			err = h.assigner.Unassign(c.Request.Context(), topicID, userID, false)
		}
		if err != nil {
			failed[strconv.FormatUint(topicID, 10)] = err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"processed": len(req.TopicIDs) - len(failed),
		"failed":    failed,
	})
}

// AssignableGroups lists the groups the caller may pick as targets.
func (h *AssignHandler) AssignableGroups(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	viewer, err := h.authService.GetUser(userID)
	if err != nil {
		apierrors.Unauthorized(c, "")
		return
	}

	groups, err := h.eligibility.AssignableGroups(viewer)
	if err != nil {
		apierrors.InternalError(c, "Failed to load assignable groups")
		return
	}

	result := make([]dto.GroupDTO, 0, len(groups))
	for _, g := range groups {
		result = append(result, dto.ToGroupDTO(g))
	}

	c.JSON(http.StatusOK, gin.H{"groups": result})
}

func (h *AssignHandler) resolveTarget(username, groupName string) (models.Assignee, error) {
	switch {
	case username != "":
		user, err := h.users.FindByUsername(username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Assignee{}, services.ErrAssigneeNotFound
			}
			return models.Assignee{}, err
		}
		return models.UserAssignee(user.ID), nil
	case groupName != "":
		group, err := h.groups.FindByName(groupName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Assignee{}, services.ErrAssigneeNotFound
			}
			return models.Assignee{}, err
		}
		return models.GroupAssignee(group.ID), nil
	default:
		return models.Assignee{}, services.ErrAssigneeNotFound
	}
}

func (h *AssignHandler) assignmentDTO(a models.Assignment) dto.AssignmentDTO {
	var user *models.User
	var group *models.Group

	switch a.AssignedTo.Type {
	case models.AssigneeUser:
		user, _ = h.users.FindByID(a.AssignedTo.ID)
	case models.AssigneeGroup:
		group, _ = h.groups.FindByID(a.AssignedTo.ID)
	}

	return dto.ToAssignmentDTO(a, user, group)
}

func respondAssignError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAssignDisabled):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTopicNotFound),
		errors.Is(err, services.ErrAssigneeNotFound),
		errors.Is(err, services.ErrActorNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrGroupNotAssignable):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
