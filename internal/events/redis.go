// Package events delivers committed partner events to the outside world:
// a redis list for downstream consumers and a websocket hub for connected clients.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for addr after checking it answers PING.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisQueue pushes each event as JSON onto a redis list.
type RedisQueue struct {
	client redis.Cmdable
	queue  string
}

func NewRedisQueue(client redis.Cmdable, queue string) *RedisQueue {
	return &RedisQueue{client: client, queue: queue}
}

func (q *RedisQueue) Notify(ctx context.Context, ev partner.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal partner event: %w", err)
	}
	if err := q.client.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}
