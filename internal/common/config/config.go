// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Site          SiteConfig         `mapstructure:"site"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Submission    SubmissionConfig   `mapstructure:"submission"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name          string `mapstructure:"name"`
	Version       string `mapstructure:"version"`
	Environment   string `mapstructure:"environment"`
	ListenAddress string `mapstructure:"listen_address"`
}

// SiteConfig carries the public site identity used when composing
// shareable referral links.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// ReferralLink builds the shareable link for a signed-up email.
func (s SiteConfig) ReferralLink(email string) string {
	base := s.BaseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base + "?ref=" + url.QueryEscape(email)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	QueryTimeout   int    `mapstructure:"query_timeout"` // milliseconds
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	StatsTTL int    `mapstructure:"stats_ttl"` // seconds
}

// SubmissionConfig holds settings for the submission service.
type SubmissionConfig struct {
	DefaultSource string `mapstructure:"default_source"`
	MaxBatchSize  int    `mapstructure:"max_batch_size"`
}

// NotificationConfig holds settings for the confirmation email sender.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// MetricsConfig holds settings for the metrics/health HTTP listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
