// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file and environment variables, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup so that configuration is loaded and available
// to all other packages.
func InitConfig() {
	// --- Set Search Paths ---
	viper.SetConfigName("config")
	viper.AddConfigPath(".")                // Current working directory
	viper.AddConfigPath("/etc/harvester/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.harvester") // User-specific configuration

	// --- Set Defaults ---
	// Sensible defaults for every knob; a config file or environment
	// variable overrides them.
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logging.development", false)

	viper.SetDefault("crawler.base_url", "https://www.rri.ro")
	viper.SetDefault("crawler.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	viper.SetDefault("crawler.delay_seconds", 1)
	viper.SetDefault("crawler.timeout_seconds", 30)
	viper.SetDefault("crawler.max_pages", 100)
	viper.SetDefault("crawler.checkpoint_every", 10)
	viper.SetDefault("crawler.concurrency", 2)

	viper.SetDefault("storage.provider", "local")
	viper.SetDefault("storage.gcs.bucket", "")

	viper.SetDefault("database.provider", "noop")
	viper.SetDefault("database.postgres.dsn", "")
	viper.SetDefault("database.postgres.table", "articles")

	viper.SetDefault("publisher.provider", "noop")
	viper.SetDefault("publisher.topic", "article.indexed")
	viper.SetDefault("publisher.pubsub.project_id", "")
	viper.SetDefault("publisher.pubsub.topic_id", "")

	viper.SetDefault("progress.buffer_size", 1024)
	viper.SetDefault("progress.max_batch", 256)
	viper.SetDefault("progress.flush_interval_seconds", 1)

	viper.SetDefault("match.search_timeout_seconds", 30)
	viper.SetDefault("match.output", "correspondences.json")

	// --- Environment Variables ---
	viper.SetEnvPrefix("HARVESTER") // e.g., HARVESTER_SERVER_PORT=9090
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; not fatal, defaults and environment
			// variables carry the run.
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
