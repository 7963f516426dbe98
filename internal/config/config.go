// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/api/option"

	"github.com/JakeFAU/moviegraph-crawler/internal/checkpoint"
	"github.com/JakeFAU/moviegraph-crawler/internal/extract"
	"github.com/JakeFAU/moviegraph-crawler/internal/sink"
)

// Config captures every configuration knob loaded via Viper.
type Config struct {
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Sink       SinkConfig       `mapstructure:"sink"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Status     StatusConfig     `mapstructure:"status"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// CrawlConfig governs where a crawl keeps its output and when it pauses.
type CrawlConfig struct {
	StorageDir string `mapstructure:"storage_dir"`
	MaxSteps   int    `mapstructure:"max_steps"`
}

// HTTPConfig configures page fetching and retry behavior.
type HTTPConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// HeadlessConfig enables Chrome rendering of the cast sub-pages.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// SinkConfig selects the record sink.
type SinkConfig struct {
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// SQLiteConfig holds the database file; relative paths live under the
// storage dir.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig controls access to the relational database.
type PostgresConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int32  `mapstructure:"max_conns"`
	MaxConnLifetimeSec int    `mapstructure:"max_conn_lifetime_seconds"`
}

// KafkaConfig lists brokers and the per-table topic prefix.
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// CheckpointConfig points at the checkpoint store. An empty location
// means checkpoint.json inside the storage dir.
type CheckpointConfig struct {
	Location      string `mapstructure:"location"`
	GCSEndpoint   string `mapstructure:"gcs_endpoint"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// StatusConfig controls the status HTTP server.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// PubSubConfig holds the topic that receives run summaries.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from an optional file and MOVIEGRAPH_* variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MOVIEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key; AutomaticEnv only overrides keys
// viper already knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.storage_dir", "data")
	v.SetDefault("crawl.max_steps", 0)
	v.SetDefault("http.base_url", extract.DefaultBaseURL)
	v.SetDefault("http.user_agent", "moviegraph-crawler/0.1")
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("sink.driver", sink.DriverCSV)
	v.SetDefault("sink.sqlite.path", "moviegraph.db")
	v.SetDefault("sink.postgres.dsn", "")
	v.SetDefault("sink.postgres.max_conns", 4)
	v.SetDefault("sink.postgres.max_conn_lifetime_seconds", 1800)
	v.SetDefault("sink.kafka.brokers", []string{})
	v.SetDefault("sink.kafka.topic_prefix", "moviegraph.")
	v.SetDefault("checkpoint.location", "")
	v.SetDefault("checkpoint.gcs_endpoint", "")
	v.SetDefault("checkpoint.redis_password", "")
	v.SetDefault("checkpoint.redis_db", 0)
	v.SetDefault("status.enabled", false)
	v.SetDefault("status.addr", "127.0.0.1:9464")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.StorageDir == "" {
		return fmt.Errorf("crawl.storage_dir must be set")
	}
	if c.Crawl.MaxSteps < 0 {
		return fmt.Errorf("crawl.max_steps must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffMaxMs < c.HTTP.BackoffInitialMs {
		return fmt.Errorf("http.backoff_max_ms must be >= http.backoff_initial_ms")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	switch c.Sink.Driver {
	case sink.DriverCSV, sink.DriverSQLite:
	case sink.DriverPostgres:
		if c.Sink.Postgres.DSN == "" {
			return fmt.Errorf("sink.postgres.dsn must be set for the postgres driver")
		}
	case sink.DriverKafka:
		if len(c.Sink.Kafka.Brokers) == 0 {
			return fmt.Errorf("sink.kafka.brokers must be set for the kafka driver")
		}
	default:
		return fmt.Errorf("unknown sink.driver %q", c.Sink.Driver)
	}
	if c.Status.Enabled && c.Status.Addr == "" {
		return fmt.Errorf("status.addr must be set when the status server is enabled")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

// WithStorageDir returns a copy rooted at dir.
func (c Config) WithStorageDir(dir string) Config {
	if dir != "" {
		c.Crawl.StorageDir = dir
	}
	return c
}

// CheckpointLocation resolves the checkpoint location.
func (c Config) CheckpointLocation() string {
	if c.Checkpoint.Location != "" {
		return c.Checkpoint.Location
	}
	return filepath.Join(c.Crawl.StorageDir, "checkpoint.json")
}

// CheckpointOptions converts the backend settings.
func (c Config) CheckpointOptions() checkpoint.OpenOptions {
	opts := checkpoint.OpenOptions{
		RedisPassword: c.Checkpoint.RedisPassword,
		RedisDB:       c.Checkpoint.RedisDB,
	}
	if c.Checkpoint.GCSEndpoint != "" {
		opts.GCSClientOptions = append(opts.GCSClientOptions,
			option.WithEndpoint(c.Checkpoint.GCSEndpoint), option.WithoutAuthentication())
	}
	return opts
}

// SinkConfig converts the sink section.
func (c Config) SinkConfig() sink.Config {
	return sink.Config{
		Driver: c.Sink.Driver,
		Dir:    c.Crawl.StorageDir,
		SQLite: c.Sink.SQLite.Path,
		Postgres: sink.PostgresConfig{
			DSN:             c.Sink.Postgres.DSN,
			MaxConns:        c.Sink.Postgres.MaxConns,
			MaxConnLifetime: time.Duration(c.Sink.Postgres.MaxConnLifetimeSec) * time.Second,
		},
		Kafka: sink.KafkaConfig{
			Brokers:     c.Sink.Kafka.Brokers,
			TopicPrefix: c.Sink.Kafka.TopicPrefix,
		},
	}
}

// RetryPolicy converts the HTTP retry knobs. MaxRetries counts retries,
// so the policy allows one more attempt.
func (c Config) RetryPolicy() extract.RetryPolicy {
	return extract.RetryPolicy{
		MaxAttempts: c.HTTP.MaxRetries + 1,
		BaseDelay:   time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond,
	}
}

// CollyConfig converts the HTTP section for the colly fetcher.
func (c Config) CollyConfig() extract.CollyConfig {
	return extract.CollyConfig{
		UserAgent: c.HTTP.UserAgent,
		Timeout:   time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
	}
}

// HeadlessFetcherConfig converts the headless section.
func (c Config) HeadlessFetcherConfig() extract.HeadlessConfig {
	return extract.HeadlessConfig{
		UserAgent:         c.HTTP.UserAgent,
		NavigationTimeout: time.Duration(c.Headless.NavTimeoutSec) * time.Second,
	}
}
