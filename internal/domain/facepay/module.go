package facepay

import (
	"f2fpay/internal/domain/facepay/gateway"
	"f2fpay/internal/domain/facepay/handler"
	"f2fpay/internal/domain/facepay/repository"
	"f2fpay/internal/domain/facepay/service"
	"f2fpay/internal/pkg/config"
	"f2fpay/internal/pkg/middleware"
	"f2fpay/internal/pkg/registry"
	"f2fpay/pkg/logger"
	"f2fpay/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// FacePayModule 面对面收款模块
type FacePayModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&FacePayModule{})
}

func (m *FacePayModule) Name() string {
	return "facepay"
}

func (m *FacePayModule) Priority() int {
	return 1
}

func (m *FacePayModule) Init(ctx *registry.ModuleContext) error {
	cfg := &config.GlobalConfig

	// 1. 依赖注入
	svc := NewService(cfg, ctx.DB, ctx.Redis, ctx.Metrics)
	h := handler.NewPaymentHandler(svc, cfg.FacePay.DefaultExpireMinutes,
		handler.WithPollDefaults(cfg.FacePay.PollMaxAttempts, cfg.FacePay.PollIntervalSeconds),
	)

	// 2. 路由注册
	var pollGuard []gin.HandlerFunc
	if cfg.FacePay.PollRateQPS > 0 {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.FacePay.PollRateQPS), cfg.FacePay.PollRateBurst)
		pollGuard = append(pollGuard, middleware.RateLimitMiddleware(limiter))
	}
	handler.SetupRoutes(ctx.Router, h, pollGuard...)

	return nil
}

// NewService 组装订单服务，HTTP 服务与后台任务共用
// rdb 为 nil 时使用进程内锁，多实例部署需要配置 Redis
func NewService(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *metrics.MetricsCollector) service.PaymentService {
	l := logger.L().With(zap.String("module", "facepay"))

	gw := gateway.NewClient(cfg.FacePayGatewayConfig(),
		gateway.WithLogger(l),
		gateway.WithMetrics(m),
	)

	var locker service.KeyLocker
	if rdb != nil {
		locker = service.NewRedisKeyLocker(rdb, cfg.LockTTL(), service.WithLockLogger(l))
	} else {
		l.Warn("Redis not configured, falling back to in-process order lock")
		locker = service.NewMemoryKeyLocker()
	}

	return service.NewPaymentService(repository.NewOrderRepository(db), gw,
		service.WithMerchant(gw.AppID(), gw.MchID()),
		service.WithKeyLocker(locker),
		service.WithMetrics(m),
		service.WithLogger(l),
	)
}
