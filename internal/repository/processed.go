package repository

import (
	"context"
	"fmt"

	redis_v9 "github.com/redis/go-redis/v9"
)

// ProcessedEventIndex records which event identifiers have already been
// projected. MarkIfNew must be atomic under concurrent duplicate deliveries:
// exactly one caller per eventId sees true.
type ProcessedEventIndex interface {
	// MarkIfNew records eventID and reports whether it was newly recorded.
	MarkIfNew(ctx context.Context, eventID string) (bool, error)
	// Remove withdraws a mark so a failed projection can be retried. Only the
	// caller that won MarkIfNew may call it.
	Remove(ctx context.Context, eventID string) error
}

type RedisProcessedIndex struct {
	client *redis_v9.Client
	prefix string
}

func NewRedisProcessedIndex(client *redis_v9.Client) *RedisProcessedIndex {
	return &RedisProcessedIndex{
		client: client,
		prefix: "processed_event:",
	}
}

func (r *RedisProcessedIndex) MarkIfNew(ctx context.Context, eventID string) (bool, error) {
	// SETNX is the atomic insert-if-absent primitive; no TTL, entries are
	// never expired.
	set, err := r.client.SetNX(ctx, r.prefix+eventID, 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("error marking processed event %s: %w", eventID, err)
	}
	return set, nil
}

func (r *RedisProcessedIndex) Remove(ctx context.Context, eventID string) error {
	if err := r.client.Del(ctx, r.prefix+eventID).Err(); err != nil {
		return fmt.Errorf("error removing processed event %s: %w", eventID, err)
	}
	return nil
}
