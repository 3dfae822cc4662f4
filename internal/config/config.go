// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv    string          `yaml:"app_env"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Transport TransportConfig `yaml:"transport"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type ServerConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxOpen  int    `yaml:"max_open"`
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig is optional. With no address, dispatch serialization falls
// back to Postgres advisory locks.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool { return r.Address != "" }

// AMQPConfig is optional. With no URL, hand-off notifications go to an
// in-process queue.
type AMQPConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type TrackingConfig struct {
	BaseURL    string `yaml:"base_url"`
	SigningKey string `yaml:"signing_key"`
}

type TransportConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ConfigSet       string `yaml:"configuration_set"`
}

type DispatchConfig struct {
	PageSize     int           `yaml:"page_size"`
	SubBatchSize int           `yaml:"sub_batch_size"`
	StoreTimeout time.Duration `yaml:"store_timeout"`
	LockTTL      time.Duration `yaml:"lock_ttl"`
}

type WorkerConfig struct {
	MaxAttempts    int    `yaml:"max_attempts"`
	MetricsAddress string `yaml:"metrics_address"`
}

func defaults() *Config {
	return &Config{
		AppEnv: "development",
		Server: ServerConfig{
			Address:        ":8080",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
			MaxOpen: 10,
		},
		AMQP: AMQPConfig{Queue: "campaign_sends"},
		Transport: TransportConfig{
			Region: "us-east-1",
		},
		Dispatch: DispatchConfig{
			PageSize:     1000,
			SubBatchSize: 1000,
			StoreTimeout: 30 * time.Second,
			LockTTL:      10 * time.Minute,
		},
		Worker: WorkerConfig{MaxAttempts: 3, MetricsAddress: ":9091"},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	var errs []error
	applyEnv(cfg, &errs)
	errs = append(errs, cfg.validate()...)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, errs *[]error) {
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)

	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxOpen = getEnvInt("DB_MAX_OPEN", cfg.Database.MaxOpen, errs)

	cfg.Redis.Address = getEnv("REDIS_ADDR", cfg.Redis.Address)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB, errs)

	cfg.AMQP.URL = getEnv("AMQP_URL", cfg.AMQP.URL)
	cfg.AMQP.Queue = getEnv("AMQP_QUEUE", cfg.AMQP.Queue)

	cfg.Tracking.BaseURL = getEnv("TRACKING_BASE_URL", cfg.Tracking.BaseURL)
	cfg.Tracking.SigningKey = getEnv("TRACKING_SIGNING_KEY", cfg.Tracking.SigningKey)

	cfg.Transport.Region = getEnv("AWS_REGION", cfg.Transport.Region)
	cfg.Transport.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", cfg.Transport.AccessKeyID)
	cfg.Transport.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", cfg.Transport.SecretAccessKey)
	cfg.Transport.ConfigSet = getEnv("SES_CONFIGURATION_SET", cfg.Transport.ConfigSet)

	cfg.Dispatch.PageSize = getEnvInt("DISPATCH_PAGE_SIZE", cfg.Dispatch.PageSize, errs)
	cfg.Dispatch.SubBatchSize = getEnvInt("DISPATCH_SUB_BATCH_SIZE", cfg.Dispatch.SubBatchSize, errs)
	cfg.Dispatch.StoreTimeout = getEnvDuration("DISPATCH_STORE_TIMEOUT", cfg.Dispatch.StoreTimeout, errs)
	cfg.Dispatch.LockTTL = getEnvDuration("DISPATCH_LOCK_TTL", cfg.Dispatch.LockTTL, errs)

	cfg.Worker.MaxAttempts = getEnvInt("WORKER_MAX_ATTEMPTS", cfg.Worker.MaxAttempts, errs)
	cfg.Worker.MetricsAddress = getEnv("WORKER_METRICS_ADDRESS", cfg.Worker.MetricsAddress)
}

func (c *Config) validate() []error {
	var errs []error
	if c.Database.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.Database.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.Dispatch.PageSize <= 0 {
		errs = append(errs, errors.New("DISPATCH_PAGE_SIZE must be > 0"))
	}
	if c.Dispatch.SubBatchSize <= 0 {
		errs = append(errs, errors.New("DISPATCH_SUB_BATCH_SIZE must be > 0"))
	}
	if c.Dispatch.StoreTimeout <= 0 {
		errs = append(errs, errors.New("DISPATCH_STORE_TIMEOUT must be > 0"))
	}
	if c.Dispatch.LockTTL <= 0 {
		errs = append(errs, errors.New("DISPATCH_LOCK_TTL must be > 0"))
	}
	if c.Worker.MaxAttempts <= 0 {
		errs = append(errs, errors.New("WORKER_MAX_ATTEMPTS must be > 0"))
	}
	return errs
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid int for env %s: %q", key, v))
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid duration for env %s: %q", key, v))
		return def
	}
	return d
}
