package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Email    EmailConfig    `mapstructure:"email"`
	Realtime RealtimeConfig `mapstructure:"realtime" validate:"required"`
	Delivery DeliveryConfig `mapstructure:"delivery" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	// TxRetries bounds how often a transaction aborted by a serialization
	// failure is re-run.
	TxRetries uint64 `mapstructure:"tx_retries" validate:"lte=10"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// EmailConfig configures the SMTP channel. When Enabled is false
// notifications are never emailed and the remaining fields are ignored.
// From takes a bare address or the display-name form, e.g.
// "TaskHub <noreply@example.com>".
type EmailConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Host          string  `mapstructure:"host" validate:"required_if=Enabled true"`
	Port          int     `mapstructure:"port" validate:"required_if=Enabled true,gte=0,lt=65536"`
	Username      string  `mapstructure:"username"`
	Password      string  `mapstructure:"password"`
	From          string  `mapstructure:"from" validate:"omitempty,mailbox"`
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst         int     `mapstructure:"burst" validate:"gt=0"`
}

// RealtimeConfig configures the WebSocket channel.
type RealtimeConfig struct {
	SendBuffer     int           `mapstructure:"send_buffer" validate:"gt=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	PingInterval   time.Duration `mapstructure:"ping_interval" validate:"gt=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DeliveryConfig sizes the worker pool that runs notification deliveries.
type DeliveryConfig struct {
	Workers    int           `mapstructure:"workers" validate:"gt=0"`
	QueueSize  int           `mapstructure:"queue_size" validate:"gt=0"`
	JobTimeout time.Duration `mapstructure:"job_timeout" validate:"gt=0"`
}
