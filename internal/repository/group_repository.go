package repository

import (
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"gorm.io/gorm"
)

// GormGroupRepository is a GORM implementation of GroupRepository
type GormGroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &GormGroupRepository{db: db}
}

// FindByID finds a group by ID
func (r *GormGroupRepository) FindByID(id uint64) (*models.Group, error) {
	var group models.Group
	if err := r.db.First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByName finds a group by name
func (r *GormGroupRepository) FindByName(name string) (*models.Group, error) {
	var group models.Group
	if err := r.db.Where("name = ?", name).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// Members returns the users belonging to a group
func (r *GormGroupRepository) Members(groupID uint64) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ?", groupID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// MemberIDs returns the ids of the users belonging to a group
func (r *GormGroupRepository) MemberIDs(groupID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UserGroups returns the groups a user belongs to
func (r *GormGroupRepository) UserGroups(userID uint64) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// IsMember reports whether a user belongs to a group
func (r *GormGroupRepository) IsMember(groupID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsOwner reports whether a user is an owner of a group
func (r *GormGroupRepository) IsOwner(groupID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND owner = ?", groupID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// ListByNames loads groups matching the given names
func (r *GormGroupRepository) ListByNames(names []string) ([]models.Group, error) {
	if len(names) == 0 {
		return []models.Group{}, nil
	}

	var groups []models.Group
	if err := r.db.Where("name IN ?", names).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}
