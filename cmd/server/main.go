package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "f2fpay/docs"
	_ "f2fpay/internal/domain/facepay"
	"f2fpay/internal/pkg/config"
	"f2fpay/internal/pkg/middleware"
	"f2fpay/internal/pkg/registry"
	"f2fpay/pkg/database"
	"f2fpay/pkg/logger"
	"f2fpay/pkg/metrics"
	"f2fpay/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Face-to-Face Pay API
// @version         1.0
// @description     面对面收款下单、查单、关单与状态轮询
// @BasePath        /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	config.LoadConfig()
	cfg := &config.GlobalConfig

	if err := logger.Init(logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.App.Debug,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	l := logger.L()

	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug)
	if err != nil {
		l.Fatal("Failed to init database", zap.Error(err))
	}
	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		l.Fatal("Failed to init redis", zap.Error(err))
	}

	metrics.InitMetrics()
	m := metrics.GetGlobalCollector()
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, db, cfg.Database.DBName); err != nil {
		l.Warn("Failed to register pool metrics", zap.Error(err))
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.MetricsMiddleware(m),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Authorization", "Content-Type", middleware.TraceHeader},
			ExposeHeaders:   []string{middleware.TraceHeader},
			MaxAge:          12 * time.Hour,
		}),
	)

	r.GET("/health", func(c *gin.Context) {
		stats, err := database.Stats(db)
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, response.ErrServerInternal, err.Error())
			return
		}
		response.Success(c, gin.H{"status": "ok", "db_pool": stats})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if err := registry.InitModules(&registry.ModuleContext{
		DB:      db,
		Redis:   rdb,
		Router:  r,
		Metrics: m,
	}); err != nil {
		l.Fatal("Failed to init modules", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		l.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Server error", zap.Error(err))
		}
	}()

	// 等待中断信号，轮询请求最长可能持续数分钟
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.Error("Server forced to shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	l.Info("Server exited")
}
