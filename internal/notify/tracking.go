package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTrackingPublisher pushes tracking-state updates over redis pub/sub.
type RedisTrackingPublisher struct {
	rdb *redis.Client
}

// NewRedisTrackingPublisher wraps an existing redis client.
func NewRedisTrackingPublisher(rdb *redis.Client) *RedisTrackingPublisher {
	return &RedisTrackingPublisher{rdb: rdb}
}

type trackingEnvelope struct {
	Payload       any      `json:"payload"`
	TargetUserIDs []uint64 `json:"target_user_ids"`
}

// Publish sends the payload on the channel, scoped to the target users.
func (p *RedisTrackingPublisher) Publish(ctx context.Context, channel string, payload any, targetUserIDs []uint64) error {
	body, err := json.Marshal(trackingEnvelope{
		Payload:       payload,
		TargetUserIDs: targetUserIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tracking message: %w", err)
	}

	return p.rdb.Publish(ctx, channel, body).Err()
}
