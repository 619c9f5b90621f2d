package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTemporary = errors.New("temporary")

func TestWorkerPool_Run(t *testing.T) {
	t.Run("results keep input order", func(t *testing.T) {
		pool := NewWorkerPool(4, 0)

		tasks := make([]Task, 10)
		for i := range tasks {
			i := i
			tasks[i] = Task{
				ID: fmt.Sprintf("task-%d", i),
				Run: func(ctx context.Context) error {
					if i%3 == 0 {
						return fmt.Errorf("failed %d", i)
					}
					return nil
				},
			}
		}

		results := pool.Run(context.Background(), tasks)
		require.Len(t, results, 10)
		for i, res := range results {
			assert.Equal(t, fmt.Sprintf("task-%d", i), res.ID)
			if i%3 == 0 {
				assert.EqualError(t, res.Err, fmt.Sprintf("failed %d", i))
			} else {
				assert.NoError(t, res.Err)
			}
		}
	})

	t.Run("empty task list", func(t *testing.T) {
		pool := NewWorkerPool(2, 5)
		assert.Empty(t, pool.Run(context.Background(), nil))
	})

	t.Run("non positive worker number falls back to one", func(t *testing.T) {
		pool := NewWorkerPool(0, 0)
		assert.Equal(t, 1, pool.WorkerNum)
	})

	t.Run("concurrency bounded by worker number", func(t *testing.T) {
		pool := NewWorkerPool(3, 0)

		var running, peak int32
		tasks := make([]Task, 12)
		for i := range tasks {
			tasks[i] = Task{
				ID: fmt.Sprintf("task-%d", i),
				Run: func(ctx context.Context) error {
					cur := atomic.AddInt32(&running, 1)
					for {
						old := atomic.LoadInt32(&peak)
						if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					atomic.AddInt32(&running, -1)
					return nil
				},
			}
		}

		pool.Run(context.Background(), tasks)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	})
}

func TestWorkerPool_Retry(t *testing.T) {
	retryable := func(err error) bool { return errors.Is(err, errTemporary) }

	t.Run("retryable error succeeds on retry", func(t *testing.T) {
		pool := NewWorkerPool(1, 0, WithRetry(2, time.Millisecond, retryable))

		var calls int32
		results := pool.Run(context.Background(), []Task{{
			ID: "flaky",
			Run: func(ctx context.Context) error {
				if atomic.AddInt32(&calls, 1) == 1 {
					return errTemporary
				}
				return nil
			},
		}})

		require.Len(t, results, 1)
		assert.NoError(t, results[0].Err)
		assert.Equal(t, 1, results[0].Retries)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max retry", func(t *testing.T) {
		pool := NewWorkerPool(1, 0, WithRetry(2, time.Millisecond, retryable))

		var calls int32
		results := pool.Run(context.Background(), []Task{{
			ID: "broken",
			Run: func(ctx context.Context) error {
				atomic.AddInt32(&calls, 1)
				return errTemporary
			},
		}})

		assert.ErrorIs(t, results[0].Err, errTemporary)
		assert.Equal(t, 2, results[0].Retries)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		pool := NewWorkerPool(1, 0, WithRetry(3, time.Millisecond, retryable))

		var calls int32
		permanent := errors.New("permanent")
		results := pool.Run(context.Background(), []Task{{
			ID: "bad",
			Run: func(ctx context.Context) error {
				atomic.AddInt32(&calls, 1)
				return permanent
			},
		}})

		assert.ErrorIs(t, results[0].Err, permanent)
		assert.Equal(t, 0, results[0].Retries)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestWorkerPool_Canceled(t *testing.T) {
	pool := NewWorkerPool(2, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	tasks := []Task{
		{ID: "a", Run: func(ctx context.Context) error { atomic.AddInt32(&calls, 1); return nil }},
		{ID: "b", Run: func(ctx context.Context) error { atomic.AddInt32(&calls, 1); return nil }},
	}

	results := pool.Run(ctx, tasks)
	for _, res := range results {
		assert.Error(t, res.Err)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
