package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fypmatch/recommender-engine/internal/models"
)

const (
	topicKeyPrefix   = "selection:topic:"
	studentKeyPrefix = "selection:student:"
)

// claimScript sets both the topic and student keys only if neither exists,
// so the claim is a single atomic check-and-set at the registry.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
if redis.call('EXISTS', KEYS[2]) == 1 then return 0 end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

// RedisClaimRegistry implements ClaimRegistry on Redis, for deployments
// where the selections registry is shared outside the primary database.
type RedisClaimRegistry struct {
	client *redis.Client
}

// NewRedisClaimRegistry connects to Redis and verifies connectivity.
func NewRedisClaimRegistry(ctx context.Context, address, password string, db int) (*RedisClaimRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClaimRegistry{client: client}, nil
}

// Claim atomically assigns the topic to the student. Returns
// ErrClaimConflict when the topic is taken or the student already holds one.
func (r *RedisClaimRegistry) Claim(ctx context.Context, claim *models.Claim) error {
	payload, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to marshal claim: %w", err)
	}

	keys := []string{
		topicKeyPrefix + claim.TopicID,
		studentKeyPrefix + claim.StudentID,
	}
	ok, err := claimScript.Run(ctx, r.client, keys, payload, claim.TopicID).Int()
	if err != nil {
		return fmt.Errorf("failed to run claim script: %w", err)
	}
	if ok == 0 {
		return ErrClaimConflict
	}
	return nil
}

// ListUnavailableTopicIDs scans the topic keyspace for claimed ids.
func (r *RedisClaimRegistry) ListUnavailableTopicIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	err := r.scanTopicKeys(ctx, func(key string) error {
		ids[key[len(topicKeyPrefix):]] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListClaims returns all recorded claims.
func (r *RedisClaimRegistry) ListClaims(ctx context.Context) ([]*models.Claim, error) {
	var claims []*models.Claim
	err := r.scanTopicKeys(ctx, func(key string) error {
		payload, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return nil // claim removed between scan and get
			}
			return err
		}
		var claim models.Claim
		if err := json.Unmarshal(payload, &claim); err != nil {
			slog.Warn("skipping malformed claim record", "key", key, "error", err)
			return nil
		}
		claims = append(claims, &claim)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ClearClaims removes every claim from the registry.
func (r *RedisClaimRegistry) ClearClaims(ctx context.Context) error {
	for _, prefix := range []string{topicKeyPrefix, studentKeyPrefix} {
		var cursor uint64
		for {
			keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
			if err != nil {
				return fmt.Errorf("failed to scan claims: %w", err)
			}
			if len(keys) > 0 {
				if err := r.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("failed to delete claims: %w", err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return nil
}

// Ping checks registry connectivity.
func (r *RedisClaimRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisClaimRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisClaimRegistry) scanTopicKeys(ctx context.Context, fn func(key string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, topicKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan claims: %w", err)
		}
		for _, key := range keys {
			if err := fn(key); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
