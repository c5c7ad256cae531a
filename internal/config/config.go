package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"        validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database"      validate:"required"`
	Auth         AuthConfig         `mapstructure:"auth"          validate:"required"`
	Worker       WorkerConfig       `mapstructure:"worker"        validate:"required"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"     validate:"required"`
	Retention    RetentionConfig    `mapstructure:"retention"     validate:"required"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains the dashboard authentication settings. PasswordHash is
// a bcrypt hash of the dashboard password; TokenSecret signs the JWTs the
// login endpoint mints.
type AuthConfig struct {
	PasswordHash     string `mapstructure:"password_hash"      validate:"required"`
	TokenSecret      string `mapstructure:"token_secret"       validate:"required,min=32"`
	TokenLifetimeMin int    `mapstructure:"token_lifetime_min" validate:"required,gt=0"`
}

// WorkerConfig controls the task worker pool.
type WorkerConfig struct {
	// Count is the number of concurrent task executors.
	Count int `mapstructure:"count" validate:"required,gt=0"`

	// FetchBatchSize is how many pending tasks one prefetch pulls from the
	// store; it is also the capacity of the in-memory buffer.
	FetchBatchSize int `mapstructure:"fetch_batch_size" validate:"required,gt=0"`

	// PollInterval is the prefetch tick and the executor idle sleep.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`
}

// SchedulerConfig controls the periodic producers.
type SchedulerConfig struct {
	// InboxCheckInterval is how often eligible accounts are scanned and
	// InboxCheckCooldown is how recently an account may have been checked
	// before it becomes eligible again.
	InboxCheckInterval time.Duration `mapstructure:"inbox_check_interval" validate:"required"`
	InboxCheckCooldown time.Duration `mapstructure:"inbox_check_cooldown" validate:"required"`

	// SubscriptionRefreshInterval is how often every subscribed customer is
	// re-verified against the billing provider; SubscriptionRefreshPause is
	// the gap between per-customer verification calls (provider rate limit).
	SubscriptionRefreshInterval time.Duration `mapstructure:"subscription_refresh_interval" validate:"required"`
	SubscriptionRefreshPause    time.Duration `mapstructure:"subscription_refresh_pause"    validate:"required"`

	// DemoInterval enables the end-to-end pipeline check when non-zero:
	// a fixed-payload Demo task is enqueued on this interval.
	DemoInterval time.Duration `mapstructure:"demo_interval"`
}

// RetentionConfig bounds the finished-task history.
type RetentionConfig struct {
	SweepInterval    time.Duration `mapstructure:"sweep_interval"     validate:"required"`
	MaxFinishedTasks int64         `mapstructure:"max_finished_tasks" validate:"required,gt=0"`
	DeleteBatchSize  int           `mapstructure:"delete_batch_size"  validate:"required,gt=0"`
}

// SubscriptionConfig configures the billing provider client.
type SubscriptionConfig struct {
	APIKey    string `mapstructure:"api_key"`
	ProjectID string `mapstructure:"project_id"`
}
