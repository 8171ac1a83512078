package services

import (
	"fmt"

	"github.com/hoshifuri/topic-assign-api/internal/models"
	"github.com/hoshifuri/topic-assign-api/internal/repository"
	"github.com/hoshifuri/topic-assign-api/internal/settings"
)

// EligibilityCache memoizes eligibility lookups for the duration of a single
// request. It is created per request and passed through the call context,
// never persisted.
type EligibilityCache struct {
	canAssign map[uint64]bool
}

// NewEligibilityCache creates an empty request-scoped cache.
func NewEligibilityCache() *EligibilityCache {
	return &EligibilityCache{canAssign: make(map[uint64]bool)}
}

// EligibilityService decides who may perform assignment actions and which
// groups are valid assignment targets.
type EligibilityService struct {
	settings *settings.Settings
	groups   repository.GroupRepository
}

// NewEligibilityService creates a new EligibilityService
func NewEligibilityService(s *settings.Settings, groups repository.GroupRepository) *EligibilityService {
	return &EligibilityService{settings: s, groups: groups}
}

// CanAssign reports whether the user may perform assignment operations:
// admins always can, everyone else needs membership in an allow-listed group.
func (s *EligibilityService) CanAssign(user *models.User) (bool, error) {
	if user.Admin {
		return true, nil
	}

	allowed := s.settings.AllowedGroups()
	if len(allowed) == 0 {
		return false, nil
	}

	userGroups, err := s.groups.UserGroups(user.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load user groups: %w", err)
	}

	for _, g := range userGroups {
		for _, name := range allowed {
			if g.Name == name {
				return true, nil
			}
		}
	}

	return false, nil
}

// CanAssignCached answers CanAssign through the request-scoped cache.
func (s *EligibilityService) CanAssignCached(cache *EligibilityCache, user *models.User) (bool, error) {
	if cache != nil {
		if ok, found := cache.canAssign[user.ID]; found {
			return ok, nil
		}
	}

	ok, err := s.CanAssign(user)
	if err != nil {
		return false, err
	}

	if cache != nil {
		cache.canAssign[user.ID] = ok
	}
	return ok, nil
}

// AssignableGroups returns the groups the viewer may pick as assignment
// targets, based on each group's assignable level.
func (s *EligibilityService) AssignableGroups(viewer *models.User) ([]models.Group, error) {
	allowed, err := s.groups.ListByNames(s.settings.AllowedGroups())
	if err != nil {
		return nil, fmt.Errorf("failed to load allow-listed groups: %w", err)
	}

	assignable := make([]models.Group, 0, len(allowed))
	for _, g := range allowed {
		switch g.AssignableLevel {
		case models.AssignableLevelEveryone:
			assignable = append(assignable, g)
		case models.AssignableLevelMembersModsAndAdmins:
			member, err := s.groups.IsMember(g.ID, viewer.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check membership: %w", err)
			}
			if member || viewer.Admin {
				assignable = append(assignable, g)
			}
		case models.AssignableLevelOwnersModsAndAdmins:
			owner, err := s.groups.IsOwner(g.ID, viewer.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check ownership: %w", err)
			}
			if owner || viewer.Admin {
				assignable = append(assignable, g)
			}
		}
	}

	return assignable, nil
}

// GroupAssignable reports whether a single group is a valid assignment target.
func (s *EligibilityService) GroupAssignable(group *models.Group) bool {
	return s.settings.GroupAllowed(group.Name) &&
		group.AssignableLevel != models.AssignableLevelNobody
}

// GroupTabVisible reports whether the "assigned" tab may be shown for a
// group: every member must belong to at least one allow-listed group,
// otherwise the tab would expose assignments to members without visibility.
func (s *EligibilityService) GroupTabVisible(groupID uint64) (bool, error) {
	memberIDs, err := s.groups.MemberIDs(groupID)
	if err != nil {
		return false, fmt.Errorf("failed to load group members: %w", err)
	}

	allowed, err := s.groups.ListByNames(s.settings.AllowedGroups())
	if err != nil {
		return false, fmt.Errorf("failed to load allow-listed groups: %w", err)
	}

	visible := make(map[uint64]struct{})
	for _, g := range allowed {
		ids, err := s.groups.MemberIDs(g.ID)
		if err != nil {
			return false, fmt.Errorf("failed to load allow-listed members: %w", err)
		}
		for _, id := range ids {
			visible[id] = struct{}{}
		}
	}

	for _, id := range memberIDs {
		if _, ok := visible[id]; !ok {
			return false, nil
		}
	}

	return true, nil
}
