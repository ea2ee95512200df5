package logmap

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
)

func mustPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		require.Contains(t, fmt.Sprint(r), contains)
	}()
	fn()
}

func TestPoolBasic(t *testing.T) {
	ctx := context.Background()
	p := NewPool(ctx, 4)

	var count atomic.Int32
	for range 10 {
		err := p.Submit(func(context.Context) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	err := p.Close()
	require.NoError(t, err, "all tasks succeeded; Close should return nil")
	assert.Equal(t, int32(10), count.Load(), "all 10 tasks should have executed")
	assert.Equal(t, int64(10), p.Stats().Completed)
}

func TestPoolConcurrencyLimit(t *testing.T) {
	const workers = 3
	ctx := context.Background()
	p := NewPool(ctx, workers, WithQueueSize(20))

	var (
		active    atomic.Int32
		maxActive atomic.Int32
		wg        sync.WaitGroup
	)

	for range 20 {
		wg.Add(1)
		err := p.Submit(func(context.Context) error {
			defer wg.Done()
			cur := active.Add(1)
			for {
				old := maxActive.Load()
				if cur <= old || maxActive.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return nil
		})
		require.NoError(t, err)
	}

	wg.Wait()
	require.NoError(t, p.Close())

	assert.LessOrEqual(t, maxActive.Load(), int32(workers),
		"concurrent tasks should never exceed worker count")
}

func TestPoolContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 2, WithQueueSize(0))

	// Fill workers with blocking tasks.
	blocker := make(chan struct{})
	for range 2 {
		_ = p.Submit(func(context.Context) error {
			<-blocker
			return nil
		})
	}

	// Give workers time to pick up tasks.
	time.Sleep(10 * time.Millisecond)

	cancel()

	err := p.Submit(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(blocker)
	_ = p.Close()
}

func TestPoolSkipsQueuedTasksAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1, WithQueueSize(5))

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	var ran atomic.Int32
	for range 3 {
		require.NoError(t, p.Submit(func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}

	<-started
	cancel()
	close(release)
	require.NoError(t, p.Close())

	assert.Equal(t, int32(0), ran.Load(), "queued tasks must not run after cancel")
	assert.Equal(t, int64(3), p.Stats().Skipped)
}

func TestPoolTaskSeesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1)

	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	<-started
	cancel()
	err := p.Close()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolPanicRecovery(t *testing.T) {
	ctx := context.Background()
	p := NewPool(ctx, 2)

	err := p.Submit(func(context.Context) error {
		panic("task panic!")
	})
	require.NoError(t, err)

	// Submit a normal task to verify the pool still works.
	var ran atomic.Bool
	err = p.Submit(func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)

	closeErr := p.Close()
	require.Error(t, closeErr, "panic should surface as error in Close")

	var pe *PanicError
	assert.True(t, errors.As(closeErr, &pe), "error should be a PanicError")
	assert.Equal(t, "task panic!", pe.Value)
	assert.True(t, ran.Load(), "subsequent tasks should still run after panic")
}

func TestPoolSubmitAfterClose(t *testing.T) {
	p := NewPool(context.Background(), 2)

	require.NoError(t, p.Close())

	err := p.Submit(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	const (
		taskCount   = 1000
		workerCount = 10
	)

	p := NewPool(context.Background(), workerCount)

	var count atomic.Int32
	sentinel := errors.New("intentional")

	for i := range taskCount {
		err := p.Submit(func(context.Context) error {
			count.Add(1)
			if i%100 == 0 {
				return sentinel
			}
			return nil
		})
		require.NoError(t, err)
	}

	closeErr := p.Close()
	assert.Equal(t, int32(taskCount), count.Load(), "all tasks should have run")
	assert.ErrorIs(t, closeErr, sentinel)
	assert.Equal(t, int64(10), p.Stats().Errored)
}

func TestPoolPanicOnInvalidN(t *testing.T) {
	mustPanic(t, "NewPool requires n > 0", func() {
		NewPool(context.Background(), 0)
	})

	mustPanic(t, "NewPool requires n > 0", func() {
		NewPool(context.Background(), -1)
	})
}
