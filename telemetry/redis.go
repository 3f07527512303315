package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gomav/mavlink"
)

// RedisRecorder writes connection lifecycle and heartbeat events into
// Redis hashes and publishes them on a channel named after the target key,
// mirroring the teacher's WriteAndPublishString/WriteAndPublishInt
// pipelined HSET+PUBLISH pattern.
type RedisRecorder struct {
	client *redis.Client
	ctx    context.Context
	key    string
}

// NewRedisRecorder connects to addr and returns a Recorder that writes
// under the given hash key (e.g. "mavlink:peers").
func NewRedisRecorder(addr, password string, db int, key string) (*RedisRecorder, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: connecting to redis: %w", err)
	}
	return &RedisRecorder{client: client, ctx: ctx, key: key}, nil
}

func (r *RedisRecorder) writeAndPublish(field, value string) {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, r.key, field, value)
	pipe.Publish(r.ctx, r.key, fmt.Sprintf("%s:%s", field, value))
	pipe.Exec(r.ctx)
}

// ConnectionOpened records a peer becoming known.
func (r *RedisRecorder) ConnectionOpened(peer mavlink.PeerAddress) {
	r.writeAndPublish(peer.String(), "opened")
}

// ConnectionLost records a peer's connection failing, with the error text.
func (r *RedisRecorder) ConnectionLost(peer mavlink.PeerAddress, err error) {
	r.writeAndPublish(peer.String(), "lost:"+err.Error())
}

// HeartbeatSeen records the most recent heartbeat timestamp for a peer.
func (r *RedisRecorder) HeartbeatSeen(peer mavlink.PeerAddress, at time.Time) {
	r.writeAndPublish(peer.String()+":heartbeat", at.UTC().Format(time.RFC3339))
}

// Close releases the underlying Redis client.
func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
