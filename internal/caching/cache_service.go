package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sakan/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CacheService fronts Redis for the hot read paths: per-account subscription
// snapshots used for access control, code-status polling, and rate limiting
// on the validation endpoint.
type CacheService interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error)
	SetSubscription(ctx context.Context, record *models.SubscriptionRecord, ttl time.Duration) error
	DeleteSubscription(ctx context.Context, userID uuid.UUID) error

	SetCodeStatus(ctx context.Context, code, status string, ttl time.Duration) error
	GetCodeStatus(ctx context.Context, code string) (string, error)
	DeleteCodeStatus(ctx context.Context, code string) error

	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService wraps an existing Redis client. The caller owns the
// client's lifecycle; the cache and the health checks share one connection
// pool.
func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func subscriptionKey(userID uuid.UUID) string {
	return fmt.Sprintf("sakan:subscription:%s", userID.String())
}

func (r *redisCacheService) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error) {
	data, err := r.client.Get(ctx, subscriptionKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}
	var record models.SubscriptionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *redisCacheService) SetSubscription(ctx context.Context, record *models.SubscriptionRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, subscriptionKey(record.UserID), data, ttl).Err()
}

func (r *redisCacheService) DeleteSubscription(ctx context.Context, userID uuid.UUID) error {
	return r.client.Del(ctx, subscriptionKey(userID)).Err()
}

func codeStatusKey(code string) string {
	return fmt.Sprintf("sakan:code-status:%s", code)
}

func (r *redisCacheService) SetCodeStatus(ctx context.Context, code, status string, ttl time.Duration) error {
	return r.client.Set(ctx, codeStatusKey(code), status, ttl).Err()
}

func (r *redisCacheService) GetCodeStatus(ctx context.Context, code string) (string, error) {
	val, err := r.client.Get(ctx, codeStatusKey(code)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (r *redisCacheService) DeleteCodeStatus(ctx context.Context, code string) error {
	return r.client.Del(ctx, codeStatusKey(code)).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rateKey := fmt.Sprintf("sakan:ratelimit:%s", key)
	count, err := r.client.Get(ctx, rateKey).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return count >= limit, nil
}

func (r *redisCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	rateKey := fmt.Sprintf("sakan:ratelimit:%s", key)
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, rateKey)
	pipe.Expire(ctx, rateKey, window)
	_, err := pipe.Exec(ctx)
	return err
}
