package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"f2fpay/internal/domain/facepay"
	"f2fpay/internal/domain/facepay/job"
	"f2fpay/internal/pkg/config"
	"f2fpay/internal/pkg/worker"
	"f2fpay/pkg/database"
	"f2fpay/pkg/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const usage = `Usage:
  f2fjob cleanup [--dry-run] [--batch-size N] [--retry N]   关闭已过期的未支付订单
  f2fjob sync [--minutes N] [--batch-size N] [--retry N]    同步最近 N 分钟内未支付订单的状态
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	var dryRun bool
	switch cmd {
	case "cleanup":
		fs.BoolVarP(&dryRun, "dry-run", "d", false, "预演模式，不实际关闭订单")
		fs.IntP("batch-size", "b", job.DefaultCleanupBatchSize, "批处理大小")
		mustBind("jobs.cleanup_batch_size", fs, "batch-size")
	case "sync":
		fs.IntP("minutes", "m", job.DefaultSyncMinutes, "同步最近多少分钟内的订单")
		fs.IntP("batch-size", "b", job.DefaultSyncBatchSize, "批处理大小")
		mustBind("jobs.sync_window_minutes", fs, "minutes")
		mustBind("jobs.sync_batch_size", fs, "batch-size")
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	fs.Int("retry", 0, "传输错误时的重试次数，0 表示不重试")
	mustBind("jobs.retry", fs, "retry")
	_ = fs.Parse(os.Args[2:])

	config.LoadConfig()
	cfg := &config.GlobalConfig

	if err := logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Development: cfg.App.Debug}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	l := logger.L().With(zap.String("cmd", cmd))

	db, err := database.InitDatabase(cfg.Database, false)
	if err != nil {
		l.Fatal("Failed to init database", zap.Error(err))
	}
	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		l.Fatal("Failed to init redis", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := facepay.NewService(cfg, db, rdb, nil)
	poolOpts := []worker.Option{worker.WithLogger(l)}
	if cfg.Jobs.Retry > 0 {
		poolOpts = append(poolOpts, worker.WithRetry(cfg.Jobs.Retry, 500*time.Millisecond, job.Retryable))
	}
	pool := worker.NewWorkerPool(cfg.Jobs.Workers, cfg.Jobs.QPS, poolOpts...)

	start := time.Now()
	var res job.Result
	switch cmd {
	case "cleanup":
		res, err = job.NewCleanupExpiredJob(svc, pool,
			job.WithBatchSize(cfg.Jobs.CleanupBatchSize),
			job.WithDryRun(dryRun),
			job.WithLogger(l),
		).Run(ctx)
	case "sync":
		res, err = job.NewSyncStatusJob(svc, pool, cfg.Jobs.SyncWindowMinutes,
			job.WithBatchSize(cfg.Jobs.SyncBatchSize),
			job.WithLogger(l),
		).Run(ctx)
	}
	if err != nil {
		l.Fatal("Job failed", zap.Error(err))
	}

	// 单个订单失败不影响退出码
	l.Info("Job completed",
		zap.Int("total", res.Total),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
		zap.Int("paid", res.Paid),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func mustBind(key string, fs *pflag.FlagSet, name string) {
	if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
		panic(err)
	}
}
