package job

import (
	"context"

	"f2fpay/internal/domain/facepay/model"
	"f2fpay/internal/domain/facepay/payerr"
	"f2fpay/internal/domain/facepay/service"
	"f2fpay/internal/pkg/worker"
	"f2fpay/pkg/logger"
	"f2fpay/pkg/metrics"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultCleanupBatchSize = 100
	DefaultSyncBatchSize    = 50
	DefaultSyncMinutes      = 30

	jobCleanup = "cleanup"
	jobSync    = "sync"
)

// Result 一次任务执行的统计
type Result struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Paid    int `json:"paid"`
}

type Option func(*options)

type options struct {
	batchSize int
	dryRun    bool
	metrics   *metrics.MetricsCollector
	l         *zap.Logger
}

func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithDryRun 预演模式，只记录日志不关闭订单
func WithDryRun(dryRun bool) Option {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.l = l
	}
}

func newOptions(defBatch int, opts []Option) options {
	o := options{l: logger.L()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchSize <= 0 {
		o.batchSize = defBatch
	}
	return o
}

// CleanupExpiredJob 关闭已过期但仍未支付的订单
type CleanupExpiredJob struct {
	svc  service.PaymentService
	pool *worker.WorkerPool
	opts options
}

func NewCleanupExpiredJob(svc service.PaymentService, pool *worker.WorkerPool, opts ...Option) *CleanupExpiredJob {
	return &CleanupExpiredJob{
		svc:  svc,
		pool: pool,
		opts: newOptions(DefaultCleanupBatchSize, opts),
	}
}

func (j *CleanupExpiredJob) Run(ctx context.Context) (Result, error) {
	l := j.opts.l.With(zap.String("job", jobCleanup), zap.Bool("dry_run", j.opts.dryRun))

	orders, err := j.svc.FindExpiredOrders(ctx)
	if err != nil {
		return Result{}, errors.WithMessage(err, "查询过期订单失败")
	}
	if len(orders) == 0 {
		l.Info("No expired orders to close")
		return Result{}, nil
	}
	l.Info("Found expired orders", zap.Int("count", len(orders)))

	var res Result
	err = eachBatch(ctx, orders, j.opts.batchSize, func(batch []model.Order) {
		tasks := make([]worker.Task, len(batch))
		for i := range batch {
			outTradeNo := batch[i].OutTradeNo
			tasks[i] = worker.Task{
				ID: outTradeNo,
				Run: func(ctx context.Context) error {
					if j.opts.dryRun {
						return nil
					}
					return j.svc.CloseOrder(ctx, outTradeNo)
				},
			}
		}

		for _, r := range j.pool.Run(ctx, tasks) {
			res.Total++
			if r.Err != nil {
				res.Failed++
				j.opts.metrics.RecordJobOrder(jobCleanup, "fail")
				l.Error("Failed to close order", zap.String("out_trade_no", r.ID), zap.Error(r.Err))
				continue
			}
			res.Success++
			j.opts.metrics.RecordJobOrder(jobCleanup, "success")
			l.Debug("Order closed", zap.String("out_trade_no", r.ID))
		}
		l.Info("Batch processed", zap.Int("processed", res.Total), zap.Int("total", len(orders)))
	})

	l.Info("Cleanup finished",
		zap.Int("total", res.Total),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
	)
	return res, err
}

// eachBatch 按 size 切片处理，ctx 取消后不再开始新批次
func eachBatch(ctx context.Context, orders []model.Order, size int, fn func([]model.Order)) error {
	for start := 0; start < len(orders); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + size
		if end > len(orders) {
			end = len(orders)
		}
		fn(orders[start:end])
	}
	return nil
}

// Retryable 只重试网络类错误
func Retryable(err error) bool {
	return payerr.IsTransport(err)
}
