package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take precedence
// over file values and use the RELAY_ prefix with underscores for nesting
// (e.g. RELAY_DATABASE_URL, RELAY_WORKER_COUNT).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars alone are a valid setup.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the default value for every setting that has one.
// Database URL and auth secrets have no defaults and must be provided.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_min", 60)

	v.SetDefault("worker.count", 10)
	v.SetDefault("worker.fetch_batch_size", 10)
	v.SetDefault("worker.poll_interval", time.Second)

	v.SetDefault("scheduler.inbox_check_interval", time.Minute)
	v.SetDefault("scheduler.inbox_check_cooldown", time.Minute)
	v.SetDefault("scheduler.subscription_refresh_interval", 12*time.Hour)
	v.SetDefault("scheduler.subscription_refresh_pause", 10*time.Second)
	v.SetDefault("scheduler.demo_interval", time.Duration(0))

	v.SetDefault("retention.sweep_interval", time.Minute)
	v.SetDefault("retention.max_finished_tasks", int64(1_000_000))
	v.SetDefault("retention.delete_batch_size", 10_000)
}
