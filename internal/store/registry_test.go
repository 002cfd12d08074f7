package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type registryFixture struct {
	reg     core.OperationRegistry
	clock   *fakeClock
	advance func(d time.Duration)
}

func newMemoryFixture(t *testing.T) registryFixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	reg := NewInMemoryOperationRegistry(time.Minute)
	reg.SetClock(clock.Now)
	return registryFixture{reg: reg, clock: clock, advance: clock.Add}
}

func newRedisFixture(t *testing.T) registryFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	reg := NewRedisOperationRegistryWithClient(client, "test", time.Minute)
	reg.now = clock.Now
	return registryFixture{
		reg:   reg,
		clock: clock,
		advance: func(d time.Duration) {
			clock.Add(d)
			mr.FastForward(d)
		},
	}
}

func testOperation(clock *fakeClock, id string, ttl time.Duration) core.VerificationOperation {
	now := clock.Now()
	return core.VerificationOperation{
		ID:         id,
		SubjectRef: "user-1",
		Purpose:    core.PurposeAuthentication,
		HandoffURL: "https://idp.example.com/capture/" + id,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func forEachRegistry(t *testing.T, fn func(t *testing.T, f registryFixture)) {
	t.Run("memory", func(t *testing.T) { fn(t, newMemoryFixture(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisFixture(t)) })
}

func TestRegistry_PutGet(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, f registryFixture) {
		ctx := context.Background()
		op := testOperation(f.clock, "op-1", 5*time.Minute)
		require.NoError(t, f.reg.Put(ctx, op))

		got, err := f.reg.Get(ctx, "op-1")
		require.NoError(t, err)
		require.Equal(t, op.SubjectRef, got.SubjectRef)
		require.Equal(t, op.Purpose, got.Purpose)
		require.True(t, op.ExpiresAt.Equal(got.ExpiresAt))

		_, err = f.reg.Get(ctx, "op-unknown")
		require.ErrorIs(t, err, core.ErrOperationNotFound)
	})
}

func TestRegistry_TakeIsOneTime(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, f registryFixture) {
		ctx := context.Background()
		require.NoError(t, f.reg.Put(ctx, testOperation(f.clock, "op-1", 5*time.Minute)))

		got, err := f.reg.Take(ctx, "op-1")
		require.NoError(t, err)
		require.Equal(t, "op-1", got.ID)

		_, err = f.reg.Take(ctx, "op-1")
		require.ErrorIs(t, err, core.ErrOperationConsumed)

		_, err = f.reg.Get(ctx, "op-1")
		require.ErrorIs(t, err, core.ErrOperationConsumed)
	})
}

func TestRegistry_DeleteLeavesNoMarker(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, f registryFixture) {
		ctx := context.Background()
		require.NoError(t, f.reg.Put(ctx, testOperation(f.clock, "op-1", 5*time.Minute)))
		require.NoError(t, f.reg.Delete(ctx, "op-1"))

		_, err := f.reg.Get(ctx, "op-1")
		require.ErrorIs(t, err, core.ErrOperationNotFound)
	})
}

func TestRegistry_ExpiredOperationIsUnreachable(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, f registryFixture) {
		ctx := context.Background()
		require.NoError(t, f.reg.Put(ctx, testOperation(f.clock, "op-1", 5*time.Minute)))

		f.advance(5*time.Minute + time.Second)

		_, err := f.reg.Get(ctx, "op-1")
		require.Error(t, err)
		require.True(t,
			isAny(err, core.ErrOperationExpired, core.ErrOperationNotFound),
			"expected expired or not found, got %v", err)

		_, err = f.reg.Take(ctx, "op-1")
		require.Error(t, err)
	})
}

func TestRegistry_ConcurrentTake(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, f registryFixture) {
		ctx := context.Background()
		require.NoError(t, f.reg.Put(ctx, testOperation(f.clock, "op-race", 5*time.Minute)))

		const racers = 16
		var wins, consumed atomic.Int32
		var wg sync.WaitGroup
		wg.Add(racers)
		for range racers {
			go func() {
				defer wg.Done()
				_, err := f.reg.Take(ctx, "op-race")
				switch {
				case err == nil:
					wins.Add(1)
				case isAny(err, core.ErrOperationConsumed):
					consumed.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), wins.Load())
		require.Equal(t, int32(racers-1), consumed.Load())
	})
}

// takeAroundRead runs take once, right before or right after the hooked client's MGET.
// Connection setup commands pass through untouched.
type takeAroundRead struct {
	before bool
	once   sync.Once
	take   func()
}

func (h *takeAroundRead) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *takeAroundRead) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *takeAroundRead) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() != "mget" {
			return next(ctx, cmd)
		}
		if h.before {
			h.once.Do(h.take)
			return next(ctx, cmd)
		}
		err := next(ctx, cmd)
		h.once.Do(h.take)
		return err
	}
}

func TestRedisRegistry_GetRacingTakeNeverReportsNotFound(t *testing.T) {
	for _, before := range []bool{true, false} {
		t.Run(fmt.Sprintf("take_before_read=%v", before), func(t *testing.T) {
			ctx := context.Background()
			mr := miniredis.RunT(t)

			winnerClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			loserClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				_ = winnerClient.Close()
				_ = loserClient.Close()
			})
			winner := NewRedisOperationRegistryWithClient(winnerClient, "test", time.Minute)
			loser := NewRedisOperationRegistryWithClient(loserClient, "test", time.Minute)

			clock := &fakeClock{now: time.Now()}
			require.NoError(t, winner.Put(ctx, testOperation(clock, "op-1", 5*time.Minute)))

			var takeErr error
			loserClient.AddHook(&takeAroundRead{before: before, take: func() {
				_, takeErr = winner.Take(ctx, "op-1")
			}})

			got, err := loser.Get(ctx, "op-1")
			require.NoError(t, takeErr)
			if before {
				require.ErrorIs(t, err, core.ErrOperationConsumed)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "op-1", got.ID)

			_, err = loser.Get(ctx, "op-1")
			require.ErrorIs(t, err, core.ErrOperationConsumed)
		})
	}
}

func TestRegistry_PutClearsConsumedMarker(t *testing.T) {
	forEachRegistry(t, func(t *testing.T, f registryFixture) {
		ctx := context.Background()
		op := testOperation(f.clock, "op-1", 5*time.Minute)
		require.NoError(t, f.reg.Put(ctx, op))
		_, err := f.reg.Take(ctx, "op-1")
		require.NoError(t, err)

		require.NoError(t, f.reg.Put(ctx, op))
		_, err = f.reg.Get(ctx, "op-1")
		require.NoError(t, err)
	})
}

func TestInMemoryRegistry_Sweep(t *testing.T) {
	f := newMemoryFixture(t)
	ctx := context.Background()
	reg := f.reg.(*InMemoryOperationRegistry)

	require.NoError(t, reg.Put(ctx, testOperation(f.clock, "short", time.Minute)))
	require.NoError(t, reg.Put(ctx, testOperation(f.clock, "long", 10*time.Minute)))
	require.NoError(t, reg.Put(ctx, testOperation(f.clock, "taken", 10*time.Minute)))
	_, err := reg.Take(ctx, "taken")
	require.NoError(t, err)

	f.advance(2 * time.Minute)

	evicted, err := reg.Sweep(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, evicted)
	require.Equal(t, 1, reg.Len())

	// consumed marker is gone once its retention passed
	_, err = reg.Get(ctx, "taken")
	require.ErrorIs(t, err, core.ErrOperationNotFound)

	_, err = reg.Get(ctx, "long")
	require.NoError(t, err)
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
