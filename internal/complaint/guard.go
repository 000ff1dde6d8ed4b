package complaint

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultGuardKey is shared by callers that carry no client key, which makes
// the guard a single process-wide submitting flag for them.
const defaultGuardKey = "default"

// Guard hands out the single in-flight submission slot per client key.
type Guard interface {
	// Acquire claims the slot or fails with ErrSubmissionInFlight. The
	// returned release is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalGuard holds the in-flight keys of a single instance. A key is
// claimed with LoadOrStore and freed with CompareAndDelete against the
// claim's sequence number, so only keys with a submission running are kept.
type LocalGuard struct {
	flags sync.Map // key -> uint64 claim
	seq   atomic.Uint64
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (func(), error) {
	claim := g.seq.Add(1)
	if _, loaded := g.flags.LoadOrStore(key, claim); loaded {
		return nil, ErrSubmissionInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.flags.CompareAndDelete(key, claim) })
	}, nil
}

// SubmitLocker is the Redis SETNX lock the distributed guard sits on.
type SubmitLocker interface {
	AcquireSubmitLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseSubmitLock(ctx context.Context, key, token string) (bool, error)
}

// RedisGuard shares the in-flight slot across instances. The TTL frees a
// slot whose holder died without releasing it.
type RedisGuard struct {
	locker SubmitLocker
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisGuard(locker SubmitLocker, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGuard{locker: locker, ttl: ttl, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.locker.AcquireSubmitLock(ctx, key, token, g.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSubmissionInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			released, err := g.locker.ReleaseSubmitLock(context.WithoutCancel(ctx), key, token)
			if err != nil {
				g.logger.Warn("failed to release submission lock", zap.String("key", key), zap.Error(err))
				return
			}
			if !released {
				g.logger.Warn("submission lock expired before release", zap.String("key", key), zap.Duration("ttl", g.ttl))
			}
		})
	}, nil
}
