package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBus_DispatchesToMatchingHandlers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var calls []string
	bus.Subscribe(PostCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(PostCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})
	bus.Subscribe(TopicStatusUpdated, func(_ context.Context, e Event) error {
		calls = append(calls, "other")
		return nil
	})

	bus.Publish(context.Background(), Event{Type: PostCreated})

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var reached bool
	bus.Subscribe(PostCreated, func(_ context.Context, e Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(PostCreated, func(_ context.Context, e Event) error {
		reached = true
		return nil
	})

	bus.Publish(context.Background(), Event{Type: PostCreated})

	assert.True(t, reached)
}

func TestBus_NoHandlersIsNoop(t *testing.T) {
	bus := NewBus(zap.NewNop())

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Type: MessageArchived})
	})
}
