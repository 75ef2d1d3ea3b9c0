package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	ERP       ERPConfig       `yaml:"erp"`
	Cache     CacheConfig     `yaml:"cache"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Messaging MessagingConfig `yaml:"messaging"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ERPConfig struct {
	BaseURL        string   `yaml:"base_url" json:"base_url"`
	SessionID      string   `yaml:"session_id" json:"session_id"`
	Model          string   `yaml:"model" json:"model"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds"`
	ReadLimit      int      `yaml:"read_limit" json:"read_limit"`
	Categories     []string `yaml:"categories" json:"categories"`
}

func (c ERPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	RetentionWindowDays int `yaml:"retention_window_days"`
}

// RetentionWindow is the span of source creation times kept in the cache.
func (c CacheConfig) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionWindowDays) * 24 * time.Hour
}

type BreakerConfig struct {
	FailureThreshold    int `yaml:"failure_threshold" json:"failure_threshold"`
	ResetTimeoutSeconds int `yaml:"reset_timeout_seconds" json:"reset_timeout_seconds"`
	HalfOpenMaxAttempts int `yaml:"half_open_max_attempts" json:"half_open_max_attempts"`
}

func (c BreakerConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutSeconds) * time.Second
}

type DeliveryConfig struct {
	URL          string `yaml:"url" json:"url"`
	ActiveURL    string `yaml:"active_url" json:"active_url"`
	CompletedURL string `yaml:"completed_url" json:"completed_url"`
	ListURL      string `yaml:"list_url" json:"list_url"`

	BatchSize              int `yaml:"batch_size" json:"batch_size"`
	InterBatchDelaySeconds int `yaml:"inter_batch_delay_seconds" json:"inter_batch_delay_seconds"`
	RequestTimeoutSeconds  int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
	ListPageSize           int `yaml:"list_page_size" json:"list_page_size"`

	Breaker BreakerConfig `yaml:"breaker" json:"breaker"`
}

func (c DeliveryConfig) InterBatchDelay() time.Duration {
	return time.Duration(c.InterBatchDelaySeconds) * time.Second
}

func (c DeliveryConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type ScheduleConfig struct {
	SyncInterval       time.Duration `yaml:"sync_interval"`
	ReapInterval       time.Duration `yaml:"reap_interval"`
	ResultSyncInterval time.Duration `yaml:"result_sync_interval"`
	NotifyInterval     time.Duration `yaml:"notify_interval"`
	NotifyOffset       time.Duration `yaml:"notify_offset"`
	WarmupDelay        time.Duration `yaml:"warmup_delay"`
	NotifyStartupDelay time.Duration `yaml:"notify_startup_delay"`
	NotifyCategory     string        `yaml:"notify_category"`
}

type MessagingConfig struct {
	Backend     string      `yaml:"backend" json:"backend"` // "", "kafka" or "mqtt"
	EventsTopic string      `yaml:"events_topic" json:"events_topic"`
	Kafka       KafkaConfig `yaml:"kafka" json:"kafka"`
	MQTT        MQTTConfig  `yaml:"mqtt" json:"mqtt"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "mosync.db"},
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Redis: RedisConfig{Address: "localhost:6379"},
		Web:   WebConfig{Host: "0.0.0.0", Port: 1234},
		ERP: ERPConfig{
			Model:          "mrp.production",
			TimeoutSeconds: 30,
			ReadLimit:      1000,
			Categories:     []string{"liquid", "device", "cartridge"},
		},
		Cache: CacheConfig{RetentionWindowDays: 7},
		Delivery: DeliveryConfig{
			BatchSize:              10,
			InterBatchDelaySeconds: 2,
			RequestTimeoutSeconds:  30,
			ListPageSize:           100,
			Breaker: BreakerConfig{
				FailureThreshold:    10,
				ResetTimeoutSeconds: 300,
				HalfOpenMaxAttempts: 3,
			},
		},
		Schedule: ScheduleConfig{
			SyncInterval:       6 * time.Hour,
			ReapInterval:       24 * time.Hour,
			ResultSyncInterval: 12 * time.Hour,
			NotifyInterval:     6 * time.Hour,
			NotifyOffset:       10 * time.Minute,
			WarmupDelay:        5 * time.Second,
			NotifyStartupDelay: time.Minute,
			NotifyCategory:     "liquid",
		},
		Messaging: MessagingConfig{
			EventsTopic: "mosync.events",
			MQTT:        MQTTConfig{ClientID: "mosync"},
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config back to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Messaging.Backend {
	case "", "kafka", "mqtt":
	default:
		return fmt.Errorf("unsupported messaging backend: %s", c.Messaging.Backend)
	}
	if c.Cache.RetentionWindowDays <= 0 {
		return fmt.Errorf("cache.retention_window_days must be positive")
	}
	if c.Delivery.BatchSize <= 0 {
		return fmt.Errorf("delivery.batch_size must be positive")
	}
	return nil
}

func applyEnv(c *Config) {
	setString(&c.Database.Driver, "MOSYNC_DB_DRIVER")
	setString(&c.Database.SQLite.Path, "MOSYNC_SQLITE_PATH")
	setString(&c.Database.Postgres.Host, "MOSYNC_PG_HOST")
	setInt(&c.Database.Postgres.Port, "MOSYNC_PG_PORT")
	setString(&c.Database.Postgres.Database, "MOSYNC_PG_DATABASE")
	setString(&c.Database.Postgres.User, "MOSYNC_PG_USER")
	setString(&c.Database.Postgres.Password, "MOSYNC_PG_PASSWORD")
	setString(&c.Redis.Address, "MOSYNC_REDIS_ADDR")
	setString(&c.Redis.Password, "MOSYNC_REDIS_PASSWORD")
	setString(&c.ERP.BaseURL, "MOSYNC_ERP_BASE_URL")
	setString(&c.ERP.SessionID, "MOSYNC_ERP_SESSION_ID")
	setString(&c.Delivery.URL, "MOSYNC_DELIVERY_URL")
	setString(&c.Delivery.ActiveURL, "MOSYNC_DELIVERY_ACTIVE_URL")
	setString(&c.Delivery.CompletedURL, "MOSYNC_DELIVERY_COMPLETED_URL")
	setString(&c.Delivery.ListURL, "MOSYNC_DELIVERY_LIST_URL")
	setInt(&c.Cache.RetentionWindowDays, "MOSYNC_RETENTION_WINDOW_DAYS")
	setInt(&c.Web.Port, "MOSYNC_WEB_PORT")
	if v := os.Getenv("MOSYNC_KAFKA_BROKERS"); v != "" {
		c.Messaging.Kafka.Brokers = strings.Split(v, ",")
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
