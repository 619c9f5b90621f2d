package worker

import (
	"context"
	"sync"
	"time"

	"f2fpay/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Task 一个待执行的任务，ID 用于日志与结果对应
type Task struct {
	ID  string
	Run func(ctx context.Context) error
}

// Result 与输入任务一一对应
type Result struct {
	ID      string
	Err     error
	Retries int
}

type WorkerPool struct {
	WorkerNum  int
	MaxRetry   int // 最大重试次数
	RetryDelay time.Duration

	limiter   *rate.Limiter
	retryable func(error) bool
	l         *zap.Logger
}

type Option func(*WorkerPool)

// WithRetry 仅对 retryable 返回 true 的错误重试
func WithRetry(maxRetry int, delay time.Duration, retryable func(error) bool) Option {
	return func(p *WorkerPool) {
		p.MaxRetry = maxRetry
		p.RetryDelay = delay
		p.retryable = retryable
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *WorkerPool) {
		p.l = l
	}
}

// NewWorkerPool qps 不大于 0 时不限速
func NewWorkerPool(workerNum int, qps float64, opts ...Option) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	p := &WorkerPool{
		WorkerNum: workerNum,
		l:         logger.L(),
	}
	if qps > 0 {
		burst := int(qps)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run 并发执行全部任务并等待结束，结果顺序与 tasks 一致
// ctx 取消后尚未开始的任务直接以 ctx.Err() 结束
func (p *WorkerPool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	queue := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < p.WorkerNum; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for idx := range queue {
				results[idx] = p.process(ctx, id, tasks[idx])
			}
		}(i)
	}

	for i := range tasks {
		queue <- i
	}
	close(queue)
	wg.Wait()

	p.l.Debug("Worker pool finished", zap.Int("tasks", len(tasks)), zap.Int("workers", p.WorkerNum))
	return results
}

func (p *WorkerPool) process(ctx context.Context, workerID int, task Task) Result {
	res := Result{ID: task.ID}
	for {
		if err := p.wait(ctx); err != nil {
			res.Err = err
			return res
		}

		err := task.Run(ctx)
		if err == nil {
			res.Err = nil
			return res
		}
		res.Err = err

		if res.Retries >= p.MaxRetry || p.retryable == nil || !p.retryable(err) {
			p.l.Warn("Task failed",
				zap.Int("worker", workerID),
				zap.String("task", task.ID),
				zap.Int("retries", res.Retries),
				zap.Error(err),
			)
			return res
		}

		res.Retries++
		p.l.Info("Task will be retried",
			zap.Int("worker", workerID),
			zap.String("task", task.ID),
			zap.Int("attempt", res.Retries),
			zap.Int("max_retry", p.MaxRetry),
		)
		// 延迟重试，避免立即重试
		if err := sleep(ctx, time.Duration(res.Retries)*p.RetryDelay); err != nil {
			res.Err = err
			return res
		}
	}
}

func (p *WorkerPool) wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
