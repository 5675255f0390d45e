package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8899"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"127.0.0.1"`   // 端侧 agent，默认只监听回环地址
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"tripguard-agent"`

	// 本地存储配置
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"badger"` // badger, redis
	BadgerPath     string `env:"BADGER_PATH" envDefault:"./data/tripguard"`
	BadgerInMemory bool   `env:"BADGER_IN_MEMORY" envDefault:"false"`

	// Redis 配置（STORAGE_BACKEND=redis 时使用）
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"tg"`

	// PostgreSQL 配置（远端行程会话）
	PostgreSQLEnabled  bool   `env:"POSTGRESQL_ENABLED" envDefault:"true"`
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"tripguard"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"5"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"20"`

	// RabbitMQ 配置（守护人信号、本地通知推送）
	RabbitMQEnabled  bool   `env:"RABBITMQ_ENABLED" envDefault:"true"`
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// 地理编码配置
	GeocoderBaseURL   string  `env:"GEOCODER_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string  `env:"GEOCODER_USER_AGENT" envDefault:"tripguard-agent/1.0"`
	GeocoderRPS       float64 `env:"GEOCODER_RPS" envDefault:"1"` // Nominatim 限制每秒 1 次
	GeocoderTimeout   int     `env:"GEOCODER_TIMEOUT_SECONDS" envDefault:"10"`

	// 网络探测配置
	ProbeURL            string `env:"PROBE_URL" envDefault:"https://clients3.google.com/generate_204"`
	ProbeTimeoutSeconds int    `env:"PROBE_TIMEOUT_SECONDS" envDefault:"5"`

	// 遗忘行程检测
	LocationIntervalSeconds int  `env:"LOCATION_INTERVAL_SECONDS" envDefault:"20"`
	LocationDistanceMeters  int  `env:"LOCATION_DISTANCE_METERS" envDefault:"30"`
	PlacesRefreshMinutes    int  `env:"PLACES_REFRESH_MINUTES" envDefault:"3"`
	LocationPermission      bool `env:"LOCATION_PERMISSION" envDefault:"true"`
	NotificationPermission  bool `env:"NOTIFICATION_PERMISSION" envDefault:"true"`
	SandboxRuntime          bool `env:"SANDBOX_RUNTIME" envDefault:"false"` // 预览/沙箱运行时，不支持后台定位与通知

	// 离线行程队列
	QueueSyncSeconds     int `env:"QUEUE_SYNC_SECONDS" envDefault:"30"`
	LaunchRateLimitSecs  int `env:"LAUNCH_RATE_LIMIT_SECONDS" envDefault:"5"` // 防止连续点击重复入队
	LaunchRateLimitBurst int `env:"LAUNCH_RATE_LIMIT_BURST" envDefault:"1"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	OTelEnabled  bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampler  float64 `env:"OTEL_SAMPLER" envDefault:"0.1"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	switch Cfg.StorageBackend {
	case "badger", "redis":
	default:
		log.Printf("WARN: unknown STORAGE_BACKEND %q, falling back to badger", Cfg.StorageBackend)
		Cfg.StorageBackend = "badger"
	}

	if Cfg.StorageBackend == "badger" && !Cfg.BadgerInMemory && Cfg.BadgerPath == "" {
		log.Fatal("BADGER_PATH is required when BADGER_IN_MEMORY is false")
	}

	if !Cfg.PostgreSQLEnabled {
		log.Printf("WARN: POSTGRESQL_ENABLED is false, trip launches will stay queued")
	}

	if !Cfg.RabbitMQEnabled {
		log.Printf("WARN: RABBITMQ_ENABLED is false, guardian signals and notifications will only be logged")
	}

	if Cfg.GeocoderRPS <= 0 {
		log.Printf("WARN: GEOCODER_RPS must be positive, using 1")
		Cfg.GeocoderRPS = 1
	}

	if Cfg.QueueSyncSeconds <= 0 {
		Cfg.QueueSyncSeconds = 30
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LocationInterval 定位采样的最小间隔
func (c *Config) LocationInterval() time.Duration {
	return time.Duration(c.LocationIntervalSeconds) * time.Second
}

// PlacesRefreshWindow 常用地点配置刷新窗口
func (c *Config) PlacesRefreshWindow() time.Duration {
	return time.Duration(c.PlacesRefreshMinutes) * time.Minute
}

// QueueSyncInterval 离线队列同步周期
func (c *Config) QueueSyncInterval() time.Duration {
	return time.Duration(c.QueueSyncSeconds) * time.Second
}
