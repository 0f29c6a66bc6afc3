package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WARRANTY_SERVER_PORT
const EnvPrefix = "WARRANTY"

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Emails    EmailsConfig    `mapstructure:"emails"`
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	IMAP      IMAPConfig      `mapstructure:"imap"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EmailsConfig holds the .eml folder settings
type EmailsConfig struct {
	Path           string `mapstructure:"path"`
	IndexOnStartup bool   `mapstructure:"index_on_startup"`
}

// IndexerConfig holds worker pool settings
type IndexerConfig struct {
	Workers int `mapstructure:"workers"`
}

// IMAPConfig holds the optional mailbox source
type IMAPConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	TLS       bool   `mapstructure:"tls"`
	Mailbox   string `mapstructure:"mailbox"`
	SinceDays int    `mapstructure:"since_days"`
	Limit     int    `mapstructure:"limit"`
}

// RemindersConfig holds the reminder loop settings
type RemindersConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	DaysBefore int           `mapstructure:"days_before"`
	Interval   time.Duration `mapstructure:"interval"`
	Recipient  string        `mapstructure:"recipient"`
}

// NotifierConfig selects the reminder delivery backend
type NotifierConfig struct {
	Provider string    `mapstructure:"provider"`
	SES      SESConfig `mapstructure:"ses"`
}

// SESConfig holds AWS SES settings
type SESConfig struct {
	Region          string `mapstructure:"region"`
	Sender          string `mapstructure:"sender"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DataDir returns ~/.warranty-tracker, or the working directory when the
// home directory is unknown
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".warranty-tracker")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	dataDir := DataDir()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", filepath.Join(dataDir, "warranty.db"))
	v.SetDefault("emails.path", "./emails")
	v.SetDefault("emails.index_on_startup", true)
	v.SetDefault("indexer.workers", 0)
	v.SetDefault("imap.enabled", false)
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.since_days", 90)
	v.SetDefault("imap.limit", 500)
	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.days_before", 7)
	v.SetDefault("reminders.interval", "24h")
	v.SetDefault("reminders.recipient", "")
	v.SetDefault("notifier.provider", "stdout")
	v.SetDefault("notifier.ses.region", "us-east-1")
	v.SetDefault("notifier.ses.sender", "")
	v.SetDefault("notifier.ses.access_key_id", "")
	v.SetDefault("notifier.ses.secret_access_key", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Default returns the configuration used when no file or environment
// override exists
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults alone always decode
		panic(err)
	}
	return cfg
}

// Load reads the YAML file at path, then applies WARRANTY_* environment
// overrides. A missing file or empty path means defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate checks values that would otherwise fail much later
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Reminders.DaysBefore <= 0 {
		return fmt.Errorf("reminders.days_before must be positive, got %d", c.Reminders.DaysBefore)
	}
	if c.Reminders.Interval <= 0 {
		return fmt.Errorf("reminders.interval must be positive, got %s", c.Reminders.Interval)
	}
	switch c.Notifier.Provider {
	case "stdout":
	case "ses":
		if c.Notifier.SES.Sender == "" {
			return errors.New("notifier.ses.sender is required for the ses provider")
		}
	default:
		return fmt.Errorf("unknown notifier.provider %q", c.Notifier.Provider)
	}
	if c.IMAP.Enabled && (c.IMAP.Host == "" || c.IMAP.Username == "") {
		return errors.New("imap.host and imap.username are required when imap is enabled")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Address returns the full server address
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the full server URL
func (c *Config) URL() string {
	return "http://" + c.Address()
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid logging.level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds the application logger writing to w
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
