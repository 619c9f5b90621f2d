package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"f2fpay/internal/domain/facepay/gateway"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	FacePay  FacePayConfig  `mapstructure:"facepay"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// FacePayConfig 面对面收款网关与轮询参数
type FacePayConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	AppID                string `mapstructure:"app_id"`
	MchID                string `mapstructure:"mch_id"`
	APIKey               string `mapstructure:"api_key"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`
	PollMaxAttempts      int    `mapstructure:"poll_max_attempts"`
	PollIntervalSeconds  int    `mapstructure:"poll_interval_seconds"`
	LockTTLSeconds       int    `mapstructure:"lock_ttl_seconds"`
	DefaultExpireMinutes int    `mapstructure:"default_expire_minutes"`

	// 轮询接口按 IP 限流
	PollRateQPS   float64 `mapstructure:"poll_rate_qps"`
	PollRateBurst int     `mapstructure:"poll_rate_burst"`
}

// JobsConfig 清理与同步任务
type JobsConfig struct {
	CleanupBatchSize  int     `mapstructure:"cleanup_batch_size"`
	SyncWindowMinutes int     `mapstructure:"sync_window_minutes"`
	SyncBatchSize     int     `mapstructure:"sync_batch_size"`
	Workers           int     `mapstructure:"workers"`
	QPS               float64 `mapstructure:"qps"`
	// Retry 传输错误的额外重试次数，默认 0 即每个订单只访问网关一次
	Retry int `mapstructure:"retry"`
}

var GlobalConfig Config

// FacePayGatewayConfig 转换为网关客户端配置
func (c *Config) FacePayGatewayConfig() gateway.Config {
	return gateway.Config{
		BaseURL: c.FacePay.BaseURL,
		AppID:   c.FacePay.AppID,
		MchID:   c.FacePay.MchID,
		APIKey:  c.FacePay.APIKey,
		Timeout: time.Duration(c.FacePay.TimeoutSeconds) * time.Second,
	}
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.FacePay.LockTTLSeconds) * time.Second
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.FacePay.AppID == "" || c.FacePay.MchID == "" {
		return errors.New("facepay app_id and mch_id are required")
	}
	if c.FacePay.APIKey == "" {
		return errors.New("facepay api_key is required")
	}

	// 数据库配置验证
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}

	if c.App.Env == "prod" && len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "f2fpay")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Shanghai")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.debug", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("facepay.base_url", gateway.DefaultBaseURL)
	v.SetDefault("facepay.app_id", "")
	v.SetDefault("facepay.mch_id", "")
	v.SetDefault("facepay.api_key", "")
	v.SetDefault("facepay.timeout_seconds", 30)
	v.SetDefault("facepay.poll_max_attempts", 30)
	v.SetDefault("facepay.poll_interval_seconds", 2)
	v.SetDefault("facepay.lock_ttl_seconds", 10)
	v.SetDefault("facepay.default_expire_minutes", 30)
	v.SetDefault("facepay.poll_rate_qps", 1)
	v.SetDefault("facepay.poll_rate_burst", 5)

	v.SetDefault("jobs.cleanup_batch_size", 100)
	v.SetDefault("jobs.sync_window_minutes", 30)
	v.SetDefault("jobs.sync_batch_size", 50)
	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.qps", 10)
	v.SetDefault("jobs.retry", 0)
}

// Load 从 viper 读取配置，环境变量按 FACEPAY_API_KEY 形式覆盖
// 配置文件缺失时仅使用默认值与环境变量
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig 加载配置到 GlobalConfig，失败直接退出
func LoadConfig() {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	v := viper.GetViper()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	cfg, err := Load(v)
	if err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	GlobalConfig = *cfg

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
