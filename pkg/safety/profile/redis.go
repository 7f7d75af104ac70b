package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/vigil/pkg/safety"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces every key. Default: "vigil"
	KeyPrefix string

	// TTL expires profiles that are not updated within the period.
	// Zero keeps profiles until they are deleted.
	TTL time.Duration
}

// RedisStore keeps profiles as JSON values in Redis. A set indexes the
// stored user ids for List and Cleanup.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "vigil"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}
}

func (s *RedisStore) key(userID string) string {
	return fmt.Sprintf("%s:profile:%s", s.prefix, userID)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":profiles"
}

// Get loads a profile.
func (s *RedisStore) Get(ctx context.Context, userID string) (*safety.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var p safety.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, nil
}

// Upsert writes a profile and refreshes its TTL.
func (s *RedisStore) Upsert(ctx context.Context, p *safety.Profile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if p.UserID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(p.UserID), data, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), p.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// List returns every live profile ordered by user id. Index entries whose
// profile has expired are removed.
func (s *RedisStore) List(ctx context.Context) ([]*safety.Profile, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	sort.Strings(ids)

	profiles := make([]*safety.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Delete removes a profile.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(userID))
		pipe.SRem(ctx, s.indexKey(), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// Cleanup removes profiles last updated before olderThan.
func (s *RedisStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range profiles {
		if !p.UpdatedAt.Before(olderThan) {
			continue
		}
		if err := s.Delete(ctx, p.UserID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
