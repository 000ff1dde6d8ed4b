package complaint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wangsammo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLocalGuard_SingleAcquire(t *testing.T) {
	g := NewLocalGuard()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "k")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	otherRelease, err := g.Acquire(ctx, "other")
	require.NoError(t, err)
	otherRelease()

	release()
	release() // idempotent

	again, err := g.Acquire(ctx, "k")
	require.NoError(t, err)
	again()
}

func TestLocalGuard_RaceHasOneWinner(t *testing.T) {
	g := NewLocalGuard()
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Acquire(context.Background(), "same"); err == nil {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestLocalGuard_ForgetsReleasedKeys(t *testing.T) {
	g := NewLocalGuard()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		release, err := g.Acquire(ctx, fmt.Sprintf("10.0.0.%d", i))
		require.NoError(t, err)
		release()
	}
	held, err := g.Acquire(ctx, "10.0.1.1")
	require.NoError(t, err)

	var keys []any
	g.flags.Range(func(k, _ any) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []any{"10.0.1.1"}, keys)

	held()
	held()
	g.flags.Range(func(k, _ any) bool {
		t.Errorf("key %v still held after release", k)
		return true
	})
}

func TestLocalGuard_StaleReleaseKeepsNewClaim(t *testing.T) {
	g := NewLocalGuard()
	ctx := context.Background()

	first, err := g.Acquire(ctx, "k")
	require.NoError(t, err)
	first()
	second, err := g.Acquire(ctx, "k")
	require.NoError(t, err)

	first()
	_, err = g.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	second()
}

func TestRedisGuard(t *testing.T) {
	locker := new(MockLocker)
	g := NewRedisGuard(locker, time.Minute, nil)
	ctx := context.Background()

	var token string
	locker.On("AcquireSubmitLock", "free", mock.AnythingOfType("string"), time.Minute).
		Run(func(args mock.Arguments) { token = args.String(1) }).
		Return(true, nil)
	locker.On("AcquireSubmitLock", "busy", mock.Anything, time.Minute).Return(false, nil)
	locker.On("AcquireSubmitLock", "broken", mock.Anything, time.Minute).Return(false, errors.New("redis down"))
	locker.On("ReleaseSubmitLock", "free", mock.Anything).Return(true, nil).Once()

	release, err := g.Acquire(ctx, "free")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	release()
	release()
	locker.AssertNumberOfCalls(t, "ReleaseSubmitLock", 1)
	locker.AssertCalled(t, "ReleaseSubmitLock", "free", token)

	_, err = g.Acquire(ctx, "busy")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	_, err = g.Acquire(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSubmissionInFlight)
}

func TestRedisGuard_TokensDifferPerAcquire(t *testing.T) {
	locker := new(MockLocker)
	g := NewRedisGuard(locker, time.Minute, nil)

	var tokens []string
	locker.On("AcquireSubmitLock", "k", mock.AnythingOfType("string"), time.Minute).
		Run(func(args mock.Arguments) { tokens = append(tokens, args.String(1)) }).
		Return(true, nil)
	locker.On("ReleaseSubmitLock", "k", mock.Anything).Return(false, nil)

	for i := 0; i < 2; i++ {
		release, err := g.Acquire(context.Background(), "k")
		require.NoError(t, err)
		release()
	}
	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
}

func TestMultiSink(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("telegram unreachable")}
	var viaFunc int
	sink := MultiSink{ok, nil, failing, EventSinkFunc(func(context.Context, models.FeedEvent) error {
		viaFunc++
		return nil
	})}

	err := sink.Publish(context.Background(), models.FeedEvent{Type: models.EventComplaintCreated})

	assert.ErrorContains(t, err, "telegram unreachable")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)
	assert.Equal(t, 1, viaFunc)
}
