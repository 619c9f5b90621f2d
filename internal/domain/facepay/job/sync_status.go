package job

import (
	"context"
	"time"

	"f2fpay/internal/domain/facepay/model"
	"f2fpay/internal/domain/facepay/service"
	"f2fpay/internal/pkg/worker"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SyncStatusJob 向网关重新查询窗口内的未支付订单，刷新本地状态
type SyncStatusJob struct {
	svc    service.PaymentService
	pool   *worker.WorkerPool
	window time.Duration
	opts   options
}

// NewSyncStatusJob minutes 不大于 0 时使用 DefaultSyncMinutes
func NewSyncStatusJob(svc service.PaymentService, pool *worker.WorkerPool, minutes int, opts ...Option) *SyncStatusJob {
	if minutes <= 0 {
		minutes = DefaultSyncMinutes
	}
	return &SyncStatusJob{
		svc:    svc,
		pool:   pool,
		window: time.Duration(minutes) * time.Minute,
		opts:   newOptions(DefaultSyncBatchSize, opts),
	}
}

func (j *SyncStatusJob) Run(ctx context.Context) (Result, error) {
	l := j.opts.l.With(zap.String("job", jobSync), zap.Duration("window", j.window))

	orders, err := j.svc.FindUnpaidOrders(ctx, j.window)
	if err != nil {
		return Result{}, errors.WithMessage(err, "查询未支付订单失败")
	}
	if len(orders) == 0 {
		l.Info("No unpaid orders to sync")
		return Result{}, nil
	}
	l.Info("Found unpaid orders", zap.Int("count", len(orders)))

	var res Result
	err = eachBatch(ctx, orders, j.opts.batchSize, func(batch []model.Order) {
		states := make([]model.TradeState, len(batch))
		tasks := make([]worker.Task, len(batch))
		for i := range batch {
			i := i
			outTradeNo := batch[i].OutTradeNo
			tasks[i] = worker.Task{
				ID: outTradeNo,
				Run: func(ctx context.Context) error {
					qr, err := j.svc.QueryOrder(ctx, outTradeNo)
					if err != nil {
						return err
					}
					states[i], _ = qr.State()
					return nil
				},
			}
		}

		for i, r := range j.pool.Run(ctx, tasks) {
			res.Total++
			if r.Err != nil {
				res.Failed++
				j.opts.metrics.RecordJobOrder(jobSync, "fail")
				l.Error("Failed to query order", zap.String("out_trade_no", r.ID), zap.Error(r.Err))
				continue
			}
			res.Success++

			state := states[i]
			switch {
			case state.IsSuccess():
				res.Paid++
				j.opts.metrics.RecordJobOrder(jobSync, "paid")
				l.Info("Order paid",
					zap.String("out_trade_no", r.ID),
					zap.Int64("total_fee", batch[i].TotalFee),
				)
			case state.IsFailed():
				j.opts.metrics.RecordJobOrder(jobSync, "failed_state")
				l.Info("Order payment failed", zap.String("out_trade_no", r.ID), zap.String("trade_state", string(state)))
			default:
				j.opts.metrics.RecordJobOrder(jobSync, "unpaid")
				l.Debug("Order still unpaid", zap.String("out_trade_no", r.ID))
			}
		}
		l.Info("Batch processed", zap.Int("processed", res.Total), zap.Int("total", len(orders)))
	})

	l.Info("Sync finished",
		zap.Int("total", res.Total),
		zap.Int("success", res.Success),
		zap.Int("paid", res.Paid),
		zap.Int("failed", res.Failed),
	)
	return res, err
}
