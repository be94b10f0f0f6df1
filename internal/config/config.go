package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// EBILLMANAGER_STORAGE_DRIVER.
const EnvPrefix = "EBILLMANAGER"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Tariff   TariffConfig   `mapstructure:"tariff"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
}

type StorageConfig struct {
	// Driver is memory, sqlite, postgres or postgrespool.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type TariffConfig struct {
	// File is an optional TOML tariff table; empty means the built-in one.
	File string `mapstructure:"file"`
}

type BillingConfig struct {
	GraceDays int    `mapstructure:"grace_days"`
	LateFine  string `mapstructure:"late_fine"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	RequiredAcks string   `mapstructure:"required_acks"`
	RetryMax     int      `mapstructure:"retry_max"`
}

type ReminderConfig struct {
	// Schedule is a robfig/cron spec, e.g. "@daily" or "0 9 * * *".
	Schedule       string `mapstructure:"schedule"`
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromAddress    string `mapstructure:"from_address"`
	FromName       string `mapstructure:"from_name"`
}

type AlertingConfig struct {
	WebhookURL  string        `mapstructure:"webhook_url"`
	WebhookType string        `mapstructure:"webhook_type"`
	MinFailures int           `mapstructure:"min_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// AdminUser and AdminPasswordHash (bcrypt) are the only write credentials.
	AdminUser         string `mapstructure:"admin_user"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.auto_migrate", false)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("tariff.file", "")

	v.SetDefault("billing.grace_days", 15)
	v.SetDefault("billing.late_fine", "150.00")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "ebillmanager.bills")
	v.SetDefault("kafka.required_acks", "all")
	v.SetDefault("kafka.retry_max", 3)

	v.SetDefault("reminder.schedule", "@daily")
	v.SetDefault("reminder.sendgrid_api_key", "")
	v.SetDefault("reminder.from_address", "billing@example.com")
	v.SetDefault("reminder.from_name", "eBillManager")

	v.SetDefault("alerting.webhook_url", "")
	v.SetDefault("alerting.webhook_type", "")
	v.SetDefault("alerting.min_failures", 1)
	v.SetDefault("alerting.timeout", 10*time.Second)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password_hash", "")
}

// Load reads configuration from path (any format viper understands) when it
// is non-empty, otherwise from an optional ebillmanager.yaml in the working
// directory. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("ebillmanager")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "postgrespool":
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres, postgrespool", c.Storage.Driver)
	}
	if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for driver %s", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Billing.GraceDays < 0 {
		return fmt.Errorf("billing.grace_days must not be negative")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must be specified when kafka is enabled")
	}
	if c.Auth.Enabled && c.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("auth.admin_password_hash is required when auth is enabled")
	}
	return nil
}

// Policy converts the billing section into engine constants.
func (c *Config) Policy() (billing.Policy, error) {
	fine, err := decimal.NewFromString(c.Billing.LateFine)
	if err != nil || fine.IsNegative() {
		return billing.Policy{}, fmt.Errorf("billing.late_fine %q must be a non-negative amount", c.Billing.LateFine)
	}
	return billing.Policy{
		GracePeriod: time.Duration(c.Billing.GraceDays) * 24 * time.Hour,
		LateFine:    fine,
	}, nil
}
