package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKHUB_DATABASE_URL for database.url.
const EnvPrefix = "TASKHUB"

// ConfigFileEnv names the environment variable holding an optional path to a
// YAML config file.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

// keys lists every setting so environment overrides apply even when no
// default or config file mentions them.
var keys = []string{
	"server.port", "server.log_level", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"database.url", "database.max_open_conns", "database.max_idle_conns", "database.conn_max_lifetime", "database.tx_retries",
	"auth.jwt_secret", "auth.token_lifetime_minutes",
	"email.enabled", "email.host", "email.port", "email.username", "email.password", "email.from",
	"email.rate_per_second", "email.burst",
	"realtime.send_buffer", "realtime.write_timeout", "realtime.ping_interval", "realtime.allowed_origins",
	"delivery.workers", "delivery.queue_size", "delivery.job_timeout",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.tx_retries", 3)

	v.SetDefault("auth.token_lifetime_minutes", 60*24)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.port", 587)
	v.SetDefault("email.rate_per_second", 5.0)
	v.SetDefault("email.burst", 10)

	v.SetDefault("realtime.send_buffer", 16)
	v.SetDefault("realtime.write_timeout", "10s")
	v.SetDefault("realtime.ping_interval", "30s")

	v.SetDefault("delivery.workers", 4)
	v.SetDefault("delivery.queue_size", 256)
	v.SetDefault("delivery.job_timeout", "15s")
}

// Load reads configuration from defaults, an optional .env file in the
// working directory, an optional YAML file named by TASKHUB_CONFIG_FILE, and
// TASKHUB_* environment variables, in increasing order of precedence.
// The result is validated before it is returned.
func Load() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is Load without the .env step, reading path as the config file
// when it is non-empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateMailbox accepts anything net/mail parses as a single address.
func validateMailbox(fl validator.FieldLevel) bool {
	_, err := mail.ParseAddress(fl.Field().String())
	return err == nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("mailbox", validateMailbox); err != nil {
		return fmt.Errorf("failed to register mailbox validation: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Email.Enabled && cfg.Email.From == "" {
		return errors.New("invalid configuration: Config.Email.From (required_if)")
	}
	return nil
}
