package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wangsammo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FeedChannel is the Redis channel every instance publishes complaint events on.
const FeedChannel = "complaints:feed"

const (
	revokedTokenPrefix = "auth:revoked:"
	submitLockPrefix   = "complaints:submitting:"
)

// ErrRedisUnavailable is returned by Redis-only helpers when no client is configured.
var ErrRedisUnavailable = errors.New("redis client is not configured")

// RevokeToken puts a session ID on the blocklist until its token would have expired anyway.
func (s *Service) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if s.Redis == nil {
		return ErrRedisUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return s.Redis.Set(ctx, revokedTokenPrefix+jti, 1, ttl).Err()
}

// IsTokenRevoked reports whether the session ID was signed out.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	n, err := s.Redis.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// releaseLockScript deletes the lock only while it still carries the
// caller's token, so an expired holder cannot free a newer one.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireSubmitLock atomically claims the submission slot for key under
// token. It reports false when another submission holds it.
func (s *Service) AcquireSubmitLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if s.Redis == nil {
		return false, ErrRedisUnavailable
	}
	return s.Redis.SetNX(ctx, submitLockPrefix+key, token, ttl).Result()
}

// ReleaseSubmitLock frees the submission slot for key if token still owns
// it. It reports false when the lock had already expired or changed hands.
func (s *Service) ReleaseSubmitLock(ctx context.Context, key, token string) (bool, error) {
	if s.Redis == nil {
		return false, ErrRedisUnavailable
	}
	n, err := releaseLockScript.Run(ctx, s.Redis, []string{submitLockPrefix + key}, token).Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PublishEvent broadcasts a feed event to every instance. Without Redis it is a no-op.
func (s *Service) PublishEvent(ctx context.Context, ev models.FeedEvent) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(ctx, FeedChannel, payload).Err(); err != nil {
		s.Logger.Warn("failed to publish feed event", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	return nil
}

// SubscribeEvents subscribes to the feed channel. The caller closes the subscription.
func (s *Service) SubscribeEvents(ctx context.Context) (*redis.PubSub, error) {
	if s.Redis == nil {
		return nil, ErrRedisUnavailable
	}
	return s.Redis.Subscribe(ctx, FeedChannel), nil
}
