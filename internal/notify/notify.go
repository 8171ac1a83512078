package notify

import "context"

// Kind identifies the notification type delivered to an assignee.
type Kind string

const (
	KindAssigned   Kind = "assigned"
	KindUnassigned Kind = "unassigned"
	KindReminder   Kind = "reminder"
)

// Webhook event names emitted on assignment changes.
const (
	EventAssigned   = "assigned"
	EventUnassigned = "unassigned"
)

// Payload carries the topic context of an assignment event.
type Payload struct {
	TopicID        uint64 `json:"topic_id"`
	TopicTitle     string `json:"topic_title,omitempty"`
	AssignedToType string `json:"assigned_to_type,omitempty"`
	AssignedToID   uint64 `json:"assigned_to_id,omitempty"`
	AssignedByID   uint64 `json:"assigned_by_id,omitempty"`
	Note           string `json:"note,omitempty"`
}

// NotificationSink enqueues a notification for delivery. Implementations are
// fire-and-forget; delivery and retry belong to the consumer side.
type NotificationSink interface {
	Notify(ctx context.Context, userIDs []uint64, kind Kind, payload Payload) error
}

// WebhookSink enqueues a webhook event.
type WebhookSink interface {
	Emit(ctx context.Context, event string, payload Payload) error
}

// TrackingPublisher pushes a tracking-state update to a set of users.
type TrackingPublisher interface {
	Publish(ctx context.Context, channel string, payload any, targetUserIDs []uint64) error
}

// TrackingChannelAssigned is the tracking-state channel for assigned
// private messages.
const TrackingChannelAssigned = "/private-messages/assigned"
