// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Tariff    TariffConfig    `mapstructure:"tariff"`
	Log       LogConfig       `mapstructure:"log"`
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	Debug   bool   `mapstructure:"debug"`
	AdminID int64  `mapstructure:"admin_id"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SchedulerConfig holds post scheduling and delivery configuration.
type SchedulerConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // how often the catch-up sweep runs
	Lookahead     time.Duration `mapstructure:"lookahead"`      // due-post window scanned by each sweep
	MinLead       time.Duration `mapstructure:"min_lead"`       // minimum gap between now and a post's due time
	MaxHorizon    time.Duration `mapstructure:"max_horizon"`    // how far ahead a post may be scheduled
	SendDelay     time.Duration `mapstructure:"send_delay"`     // pause between consecutive sends in a batch
}

// LimitsConfig holds the free-tier per-user limits.
type LimitsConfig struct {
	Channels    int `mapstructure:"channels"`
	PostsPerDay int `mapstructure:"posts_per_day"`
}

// TariffConfig holds the paid subscription tier.
type TariffConfig struct {
	Name         string `mapstructure:"name"`
	Price        string `mapstructure:"price"`
	Channels     int    `mapstructure:"channels"`
	PostsPerDay  int    `mapstructure:"posts_per_day"`
	DurationDays int    `mapstructure:"duration_days"`
	PaymentLink  string `mapstructure:"payment_link"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "./data/bot.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("telegram.debug", false)
	// Registering the keys lets AutomaticEnv fill them during Unmarshal
	// even when no config file is present.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("scheduler.sweep_interval", time.Minute)
	v.SetDefault("scheduler.lookahead", 5*time.Minute)
	v.SetDefault("scheduler.min_lead", 2*time.Minute)
	v.SetDefault("scheduler.max_horizon", 24*time.Hour)
	v.SetDefault("scheduler.send_delay", 500*time.Millisecond)
	v.SetDefault("limits.channels", 1)
	v.SetDefault("limits.posts_per_day", 3)
	v.SetDefault("tariff.name", "PRO")
	v.SetDefault("tariff.price", "299 stars")
	v.SetDefault("tariff.channels", 2)
	v.SetDefault("tariff.posts_per_day", 8)
	v.SetDefault("tariff.duration_days", 30)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Read environment variables
	v.SetEnvPrefix("POSTBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if c.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram admin_id is required")
	}
	if c.Scheduler.MinLead >= c.Scheduler.MaxHorizon {
		return fmt.Errorf("scheduler min_lead must be below max_horizon")
	}
	return nil
}

// ServerAddress returns the full server address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
