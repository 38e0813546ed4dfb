// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Match     MatchConfig     `mapstructure:"match"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlerConfig governs traversal and fetch behavior.
type CrawlerConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	UserAgent       string `mapstructure:"user_agent"`
	DelaySeconds    int    `mapstructure:"delay_seconds"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	MaxPages        int    `mapstructure:"max_pages"`
	CheckpointEvery int    `mapstructure:"checkpoint_every"`
	Concurrency     int    `mapstructure:"concurrency"`
}

// StorageConfig selects the article record backend.
type StorageConfig struct {
	Provider string           `mapstructure:"provider"`
	GCS      GCSStorageConfig `mapstructure:"gcs"`
}

// GCSStorageConfig identifies the bucket for the GCS backend.
type GCSStorageConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// DatabaseConfig selects the article mirror backend.
type DatabaseConfig struct {
	Provider string         `mapstructure:"provider"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls access to the relational mirror.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PublisherConfig selects the article-indexed event backend.
type PublisherConfig struct {
	Provider string       `mapstructure:"provider"`
	Topic    string       `mapstructure:"topic"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
}

// PubSubConfig identifies the Pub/Sub topic events land on.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ProgressConfig tunes the progress event hub.
type ProgressConfig struct {
	BufferSize           int `mapstructure:"buffer_size"`
	MaxBatch             int `mapstructure:"max_batch"`
	FlushIntervalSeconds int `mapstructure:"flush_interval_seconds"`
}

// MatchConfig tunes the correspondence matcher.
type MatchConfig struct {
	SearchTimeoutSeconds int    `mapstructure:"search_timeout_seconds"`
	Output               string `mapstructure:"output"`
}

// FromViper snapshots the configuration held by a Viper instance into a
// typed Config. Defaults are expected to be installed already (see
// pkg/config.InitConfig).
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if c.Crawler.DelaySeconds < 0 {
		return fmt.Errorf("crawler.delay_seconds must be >= 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.CheckpointEvery <= 0 {
		return fmt.Errorf("crawler.checkpoint_every must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	switch c.Storage.Provider {
	case "local", "noop":
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket must be set when storage.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	switch c.Database.Provider {
	case "noop":
	case "postgres":
		if c.Database.Postgres.DSN == "" {
			return fmt.Errorf("database.postgres.dsn must be set when database.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown database provider: %s", c.Database.Provider)
	}
	switch c.Publisher.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Publisher.PubSub.ProjectID == "" || c.Publisher.PubSub.TopicID == "" {
			return fmt.Errorf("publisher.pubsub.project_id and topic_id must be set when publisher.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown publisher provider: %s", c.Publisher.Provider)
	}
	if c.Match.SearchTimeoutSeconds <= 0 {
		return fmt.Errorf("match.search_timeout_seconds must be > 0")
	}
	return nil
}

// Delay converts the politeness delay into a duration.
func (c CrawlerConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// Timeout converts the per-request timeout into a duration.
func (c CrawlerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FlushInterval converts the hub flush cadence into a duration.
func (c ProgressConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// SearchTimeout converts the per-search budget into a duration.
func (c MatchConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSeconds) * time.Second
}
