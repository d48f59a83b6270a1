package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamJobs carries asset-processing jobs for the worker.
	StreamJobs = "catalog.jobs"
	// StreamEvents carries review-decision events for subscribers.
	StreamEvents = "catalog.events"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// Publish appends one entry to a stream.
func Publish(ctx context.Context, rdb *redis.Client, stream string, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: payload,
	}).Result()
	return err
}

// PublishEvent emits a domain event, best-effort. Losing one costs a
// notification, never catalog state.
func PublishEvent(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) {
	if rdb == nil {
		return
	}
	if err := Publish(ctx, rdb, StreamEvents, payload); err != nil {
		log.Printf("publish event: %v", err)
	}
}
