package events

import (
	"context"
	"sync"

	"github.com/hoshifuri/topic-assign-api/internal/models"
	"go.uber.org/zap"
)

// Type enumerates the lifecycle events the engine reacts to.
type Type string

const (
	PostCreated            Type = "post_created"
	PostEdited             Type = "post_edited"
	TopicStatusUpdated     Type = "topic_status_updated"
	GroupMembershipChanged Type = "group_membership_changed"
	MessageArchived        Type = "message_archived"
	MessageRestored        Type = "message_restored"
)

// Topic status values carried by TopicStatusUpdated.
const (
	StatusClosed     = "closed"
	StatusAutoClosed = "autoclosed"
)

// Event is a lifecycle notification from the host platform. Only the fields
// relevant to the event type are populated.
type Event struct {
	Type    Type
	TopicID uint64
	UserID  uint64
	GroupID uint64
	Post    *models.Post
	Status  string
	Enabled bool
	Removed bool
}

// Handler reacts to one event.
type Handler func(ctx context.Context, e Event) error

// Bus dispatches typed events to registered handlers synchronously, in
// registration order. Handler errors are logged, never propagated: one
// misbehaving listener must not break the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	logger   *zap.Logger
}

// NewBus creates an empty event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish dispatches the event to every handler registered for its type.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event", string(e.Type)),
				zap.Uint64("topic_id", e.TopicID),
				zap.Error(err),
			)
		}
	}
}
