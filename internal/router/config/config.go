package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	Storage        string        `mapstructure:"STORAGE"`

	PostgresConn     string `mapstructure:"POSTGRES_CONN"`
	PostgresUser     string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass     string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresDB       string `mapstructure:"POSTGRES_DATABASE"`
	PostgresMaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MigrationURL     string `mapstructure:"MIGRATION_URL"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RateLimit       int           `mapstructure:"RATE_LIMIT"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	KafkaBrokers    string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic      string        `mapstructure:"KAFKA_TOPIC"`
	OutboxInterval  time.Duration `mapstructure:"OUTBOX_INTERVAL"`
	OutboxBatchSize int           `mapstructure:"OUTBOX_BATCH_SIZE"`

	PrincipalCacheSize int `mapstructure:"PRINCIPAL_CACHE_SIZE"`
	AcceptMaxRetries   int `mapstructure:"ACCEPT_MAX_RETRIES"`

	AdminName  string `mapstructure:"ADMIN_NAME"`
	AdminEmail string `mapstructure:"ADMIN_EMAIL"`
	AdminToken string `mapstructure:"ADMIN_TOKEN"`

	BidRejectAnyStatus         bool `mapstructure:"BID_REJECT_ANY_STATUS"`
	BidRejectWithdrawnSiblings bool `mapstructure:"BID_REJECT_WITHDRAWN_SIBLINGS"`
	BidRebidAfterWithdraw      bool `mapstructure:"BID_REBID_AFTER_WITHDRAW"`
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var defaults = map[string]any{
	"SERVER_ADDRESS":                "0.0.0.0:8080",
	"REQUEST_TIMEOUT":               5 * time.Second,
	"LOG_LEVEL":                     "info",
	"STORAGE":                       StoragePostgres,
	"POSTGRES_CONN":                 "",
	"POSTGRES_USERNAME":             "",
	"POSTGRES_PASSWORD":             "",
	"POSTGRES_HOST":                 "",
	"POSTGRES_PORT":                 "5432",
	"POSTGRES_DATABASE":             "",
	"POSTGRES_MAX_CONNS":            10,
	"MIGRATION_URL":                 "file://migrations",
	"REDIS_ADDR":                    "",
	"REDIS_PASSWORD":                "",
	"RATE_LIMIT":                    100,
	"RATE_LIMIT_WINDOW":             time.Minute,
	"KAFKA_BROKERS":                 "",
	"KAFKA_TOPIC":                   "marketplace.events",
	"OUTBOX_INTERVAL":               time.Second,
	"OUTBOX_BATCH_SIZE":             100,
	"PRINCIPAL_CACHE_SIZE":          1024,
	"ACCEPT_MAX_RETRIES":            3,
	"ADMIN_NAME":                    "Admin",
	"ADMIN_EMAIL":                   "admin@example.com",
	"ADMIN_TOKEN":                   "",
	"BID_REJECT_ANY_STATUS":         true,
	"BID_REJECT_WITHDRAWN_SIBLINGS": true,
	"BID_REBID_AFTER_WITHDRAW":      false,
}

// LoadConfig загружает конфигурацию из app.env в каталоге path. Переменные
// окружения имеют приоритет, отсутствие файла не является ошибкой.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresConn == "" && c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_CONN or POSTGRES_HOST is required for %s storage", StoragePostgres)
		}
	default:
		return fmt.Errorf("unsupported STORAGE %q, expected %s or %s", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// Brokers возвращает список брокеров Kafka из KAFKA_BROKERS.
func (c Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
