// Package config loads the server configuration from an optional .env file,
// an optional TOML file and APP_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/logging"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      logging.Config `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // debug, release or test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type PaymentsConfig struct {
	Backend                  string        `mapstructure:"backend"`
	DefaultBalanceMinorUnits int64         `mapstructure:"default_balance_minor_units"`
	PreloadAccounts          int           `mapstructure:"preload_accounts"`
	PreloadWorkers           int           `mapstructure:"preload_workers"`
	IdempotencyTTL           time.Duration `mapstructure:"idempotency_ttl"`
	TransactionTimeout       time.Duration `mapstructure:"transaction_timeout"`
	TransactionRetries       uint          `mapstructure:"transaction_retries"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"` // publishing is off when empty
	Topic   string   `mapstructure:"topic"`
	Async   bool     `mapstructure:"async"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration. Both the .env file and the TOML file at path
// are optional; an empty path skips the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	p := c.Payments
	switch p.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown payments.backend %q", p.Backend)
	}
	if p.DefaultBalanceMinorUnits < 0 {
		return fmt.Errorf("payments.default_balance_minor_units must not be negative, got %d", p.DefaultBalanceMinorUnits)
	}
	if p.PreloadAccounts < 0 {
		return fmt.Errorf("payments.preload_accounts must not be negative, got %d", p.PreloadAccounts)
	}
	if p.IdempotencyTTL <= 0 {
		return errors.New("payments.idempotency_ttl must be positive")
	}
	if p.TransactionTimeout <= 0 {
		return errors.New("payments.transaction_timeout must be positive")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server.mode %q", c.Server.Mode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("payments.backend", BackendMemory)
	v.SetDefault("payments.default_balance_minor_units", 500_000_000)
	v.SetDefault("payments.preload_accounts", 200_000)
	v.SetDefault("payments.preload_workers", runtime.GOMAXPROCS(0))
	v.SetDefault("payments.idempotency_ttl", 120*time.Second)
	v.SetDefault("payments.transaction_timeout", 5*time.Second)
	v.SetDefault("payments.transaction_retries", 3)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "transfer_processed")
	v.SetDefault("kafka.async", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "logs/server.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
