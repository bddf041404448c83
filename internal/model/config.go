package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GroupwareConfig holds settings for the screen-scraped groupware portal.
type GroupwareConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Username   string `mapstructure:"username" yaml:"username"`
	Password   string `mapstructure:"password" yaml:"password"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxItems   int    `mapstructure:"max_items" yaml:"max_items"`
}

// MailConfig holds settings for the mail inbox source.
type MailConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Provider is "gmail" or "imap".
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Label restricts the Gmail query to one label when set.
	Label string `mapstructure:"label" yaml:"label"`

	// Endpoint overrides the Gmail API root URL.
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ListLimit   int    `mapstructure:"list_limit" yaml:"list_limit"`
	DetailLimit int    `mapstructure:"detail_limit" yaml:"detail_limit"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// TokenFile is a JSON encoded oauth2 token obtained out of band.
	TokenFile string `mapstructure:"token_file" yaml:"token_file"`

	IMAPHost     string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort     string `mapstructure:"imap_port" yaml:"imap_port"`
	IMAPUsername string `mapstructure:"imap_username" yaml:"imap_username"`
	IMAPPassword string `mapstructure:"imap_password" yaml:"imap_password"`
	IMAPTLS      bool   `mapstructure:"imap_tls" yaml:"imap_tls"`
}

// TrackerConfig holds settings for the project-tracker REST API.
type TrackerConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Token      string `mapstructure:"token" yaml:"token"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxItems   int    `mapstructure:"max_items" yaml:"max_items"`
}

// NotificationConfig controls summary delivery.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Console bool `mapstructure:"console" yaml:"console"`

	// JournalPath is the SQLite file for the notification journal.
	// Empty disables the journal.
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// RefreshConfig controls watch mode.
type RefreshConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Groupware     GroupwareConfig    `mapstructure:"groupware" yaml:"groupware"`
	Mail          MailConfig         `mapstructure:"mail" yaml:"mail"`
	Tracker       TrackerConfig      `mapstructure:"tracker" yaml:"tracker"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Server        ServerConfig       `mapstructure:"server" yaml:"server"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`
	Refresh       RefreshConfig      `mapstructure:"refresh" yaml:"refresh"`
}

// Timeout converts a seconds setting into a duration, using fallback
// for non-positive values.
func Timeout(sec int, fallback time.Duration) time.Duration {
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ASSISTANT"

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/self-assistant/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "self-assistant", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("groupware.enabled", true)
	v.SetDefault("groupware.base_url", "http://cybozu/cgi-bin/cbag/ag.exe")
	v.SetDefault("groupware.username", "")
	v.SetDefault("groupware.password", "")
	v.SetDefault("groupware.timeout_sec", 10)
	v.SetDefault("groupware.max_items", 100)

	v.SetDefault("mail.enabled", true)
	v.SetDefault("mail.provider", "gmail")
	v.SetDefault("mail.label", "")
	v.SetDefault("mail.endpoint", "")
	v.SetDefault("mail.list_limit", 50)
	v.SetDefault("mail.detail_limit", 20)
	v.SetDefault("mail.timeout_sec", 15)
	v.SetDefault("mail.token_file", "")
	v.SetDefault("mail.imap_host", "")
	v.SetDefault("mail.imap_port", "993")
	v.SetDefault("mail.imap_username", "")
	v.SetDefault("mail.imap_password", "")
	v.SetDefault("mail.imap_tls", true)

	v.SetDefault("tracker.enabled", true)
	v.SetDefault("tracker.base_url", "https://app.asana.com/api/1.0")
	v.SetDefault("tracker.token", "")
	v.SetDefault("tracker.timeout_sec", 15)
	v.SetDefault("tracker.max_items", 100)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.console", true)
	v.SetDefault("notifications.journal_path", "")

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("refresh.interval_sec", 300)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Mail.Provider != "gmail" && cfg.Mail.Provider != "imap" {
		return nil, fmt.Errorf(
			"parsing config %s: unsupported mail provider %q",
			path, cfg.Mail.Provider,
		)
	}

	return cfg, nil
}

// EnabledSources lists the sources switched on in cfg, in registration order.
func (c *AppConfig) EnabledSources() []SourceName {
	var names []SourceName
	if c.Groupware.Enabled {
		names = append(names, SourceGroupware)
	}
	if c.Mail.Enabled {
		names = append(names, SourceMail)
	}
	if c.Tracker.Enabled {
		names = append(names, SourceTracker)
	}
	return names
}
