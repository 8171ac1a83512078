package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hoshifuri/topic-assign-api/internal/database"
	"github.com/hoshifuri/topic-assign-api/internal/dto"
	apierrors "github.com/hoshifuri/topic-assign-api/internal/errors"
	"github.com/hoshifuri/topic-assign-api/internal/middleware"
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/query"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/hoshifuri/topic-assign-api/internal/services"
	"github.com/hoshifuri/topic-assign-api/internal/settings"
	"github.com/hoshifuri/topic-assign-api/internal/utils"
	"gorm.io/gorm"
)

// ListHandler exposes assigned-topic list and filter endpoints.
type ListHandler struct {
	eligibility *services.EligibilityService
	authService *services.AuthService
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	groups      repository.GroupRepository
	settings    *settings.Settings
}

// NewListHandler creates a new ListHandler
func NewListHandler(
	eligibility *services.EligibilityService,
	authService *services.AuthService,
	assignments repository.AssignmentRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	s *settings.Settings,
) *ListHandler {
	return &ListHandler{
		eligibility: eligibility,
		authService: authService,
		assignments: assignments,
		users:       users,
		groups:      groups,
		settings:    s,
	}
}

// MessagesAssigned lists topics assigned to a user directly or through any
// of their groups.
func (h *ListHandler) MessagesAssigned(c *gin.Context) {
	user, err := h.users.FindByUsername(c.Param("username"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierrors.NotFound(c, "User not found")
			return
		}
		apierrors.InternalError(c, "")
		return
	}

	userGroups, err := h.groups.UserGroups(user.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to load user groups")
		return
	}
	groupIDs := make([]uint64, 0, len(userGroups))
	for _, g := range userGroups {
		groupIDs = append(groupIDs, g.ID)
	}

	h.respondTopicList(c, database.GetDB().
		Model(&models.Topic{}).
		Scopes(query.AssignedToUserOrGroups(user.ID, groupIDs)))
}

// GroupTopicsAssigned lists topics assigned to a group or its members. The
// group's assigned tab must be visible.
func (h *ListHandler) GroupTopicsAssigned(c *gin.Context) {
	group, err := h.groups.FindByName(c.Param("groupname"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierrors.NotFound(c, "Group not found")
			return
		}
		apierrors.InternalError(c, "")
		return
	}

	visible, err := h.eligibility.GroupTabVisible(group.ID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if !visible {
		apierrors.Forbidden(c, "The assigned tab is not available for this group")
		return
	}

	memberIDs, err := h.groups.MemberIDs(group.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to load group members")
		return
	}

	h.respondTopicList(c, database.GetDB().
		Model(&models.Topic{}).
		Scopes(query.AssignedToGroupOrMembers(group.ID, memberIDs)))
}

// GroupAssignmentCount returns the number of assignments held by a group
// or its members.
func (h *ListHandler) GroupAssignmentCount(c *gin.Context) {
	group, err := h.groups.FindByName(c.Param("groupname"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierrors.NotFound(c, "Group not found")
			return
		}
		apierrors.InternalError(c, "")
		return
	}

	memberIDs, err := h.groups.MemberIDs(group.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to load group members")
		return
	}

	count, err := h.assignments.CountForGroup(group.ID, memberIDs)
	if err != nil {
		apierrors.InternalError(c, "Failed to count assignments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignment_count": count})
}

// FilterTopics lists topics matching an assignment filter. Supported values
// for the "assigned" parameter: "nobody", "*", "me", a username, or a group
// name. Access requires eligibility unless assignments are public.
func (h *ListHandler) FilterTopics(c *gin.Context) {
	userID, authed := middleware.GetUserID(c)

	if !h.settings.AssignsPublic() {
		if !authed {
			apierrors.Unauthorized(c, "")
			return
		}
		viewer, err := h.authService.GetUser(userID)
		if err != nil {
			apierrors.Unauthorized(c, "")
			return
		}
		ok, err := h.eligibility.CanAssignCached(middleware.GetEligibilityCache(c), viewer)
		if err != nil {
			apierrors.InternalError(c, "")
			return
		}
		if !ok {
			apierrors.Forbidden(c, "")
			return
		}
	}

	name := c.Query("assigned")
	db := database.GetDB().Model(&models.Topic{})

	switch name {
	case "":
		// no filter
	case "nobody":
		db = db.Scopes(query.InUnassigned)
	case "*":
		db = db.Scopes(query.InAssigned)
	case "me":
		if !authed {
			apierrors.Unauthorized(c, "")
			return
		}
		db = db.Scopes(query.AssignedToUser(userID))
	default:
		scope, err := h.resolveNameFilter(name)
		if err != nil {
			apierrors.NotFound(c, "No user or group matches the filter")
			return
		}
		db = db.Scopes(scope)
	}

	h.respondTopicList(c, db)
}

// resolveNameFilter maps a filter name to a user or group predicate, trying
// users first the way the search filter does.
func (h *ListHandler) resolveNameFilter(name string) (func(*gorm.DB) *gorm.DB, error) {
	if user, err := h.users.FindByUsername(name); err == nil {
		return query.AssignedToUser(user.ID), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	group, err := h.groups.FindByName(name)
	if err != nil {
		return nil, err
	}
	return query.AssignedToGroup(group.ID), nil
}

func (h *ListHandler) respondTopicList(c *gin.Context, db *gorm.DB) {
	params := utils.GetPaginationParams(c)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		apierrors.InternalError(c, "Failed to count topics")
		return
	}

	var topics []models.Topic
	if err := db.Order("topics.created_at DESC").
		Scopes(database.Paginate(params)).
		Preload("Assignment").
		Find(&topics).Error; err != nil {
		apierrors.InternalError(c, "Failed to fetch topics")
		return
	}

	items := make([]dto.TopicDTO, 0, len(topics))
	for _, topic := range topics {
		item := dto.ToTopicDTO(topic)
		h.attachAssignee(&item, topic.Assignment)
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": items,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

func (h *ListHandler) attachAssignee(item *dto.TopicDTO, assignment *models.Assignment) {
	if assignment == nil {
		return
	}

	switch assignment.AssignedTo.Type {
	case models.AssigneeUser:
		if user, err := h.users.FindByID(assignment.AssignedTo.ID); err == nil {
			u := dto.ToUserDTO(*user)
			item.AssignedToUser = &u
		}
	case models.AssigneeGroup:
		if group, err := h.groups.FindByID(assignment.AssignedTo.ID); err == nil {
			g := dto.ToGroupDTO(*group)
			item.AssignedToGroup = &g
		}
	}
}
