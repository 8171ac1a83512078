package repository

import (
	"github.com/hoshifuri/topic-assign-api/internal/models"
	"gorm.io/gorm"
)

// GormTopicRepository is a GORM implementation of TopicRepository
type GormTopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new TopicRepository
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &GormTopicRepository{db: db}
}

// FindByID finds a topic by ID with optional preloading
func (r *GormTopicRepository) FindByID(id uint64, preload ...string) (*models.Topic, error) {
	var topic models.Topic
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&topic, id).Error; err != nil {
		return nil, err
	}

	return &topic, nil
}

// Update saves topic changes
func (r *GormTopicRepository) Update(topic *models.Topic) error {
	return r.db.Save(topic).Error
}
