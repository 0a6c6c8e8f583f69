package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
	"github.com/ashwinibhardwaj/sqlassist/pkg/session"
)

func TestManager_SerializesSameKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	manager := session.NewManager()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, "orders.sql", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside, "critical sections for one dataset must not overlap")
	assert.Zero(t, manager.Active())
}

func TestManager_DifferentKeysRunConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	manager := session.NewManager()
	ctx := context.Background()

	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = manager.WithLock(ctx, "a.sql", func(context.Context) error {
			<-entered
			return nil
		})
	}()

	err := manager.WithLock(ctx, "b.sql", func(context.Context) error {
		close(entered)
		return nil
	})
	require.NoError(t, err)
	<-done
}

func TestManager_PropagatesError(t *testing.T) {
	manager := session.NewManager()
	boom := errors.New("boom")

	err := manager.WithLock(context.Background(), "x.sql", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, manager.Active())
}

func TestManager_LockLifecycle(t *testing.T) {
	manager := session.NewManager()
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		_ = manager.WithLock(ctx, fmt.Sprintf("dataset-%d.sql", i), func(context.Context) error { return nil })
	}

	if n := manager.Active(); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining after release", n)
	}
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	ttl      time.Duration
	err      error
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.locked = append(f.locked, key)
	f.ttl = ttl
	f.mu.Unlock()
	return func(ctx context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unlocked = append(f.unlocked, key)
		return ctx.Err()
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	manager := session.NewManager(session.WithLocker(locker), session.WithLockTTL(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	err := manager.WithLock(ctx, "orders.sql", func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"orders.sql"}, locker.locked)
	assert.Equal(t, []string{"orders.sql"}, locker.unlocked, "lease is released even after cancellation")
	assert.Equal(t, time.Second, locker.ttl)
}

func TestManager_DistributedLockerFailure(t *testing.T) {
	manager := session.NewManager(session.WithLocker(&fakeLocker{err: errors.New("redis down")}))

	called := false
	err := manager.WithLock(context.Background(), "orders.sql", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "redis down")
	assert.False(t, called)
	assert.Zero(t, manager.Active())
}
