// Package config loads, validates and saves the reminder dispatcher's
// configuration document.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gxliu28/gas-bot/internal/filter"
	"github.com/gxliu28/gas-bot/internal/logging"
	"github.com/gxliu28/gas-bot/internal/sheets"
)

// DefaultTimezone is used when the document leaves timezone unset.
const DefaultTimezone = "Asia/Tokyo"

// Config represents the main configuration
type Config struct {
	Timezone string          `yaml:"timezone"`
	Slack    SlackConfig     `yaml:"slack"`
	Google   GoogleConfig    `yaml:"google"`
	RunLog   RunLogConfig    `yaml:"run_log"`
	Logging  *logging.Config `yaml:"logging"`
	Server   ServerConfig    `yaml:"server"`
	Schedule ScheduleConfig  `yaml:"schedule"`
	Targets  []*Target       `yaml:"targets"`
}

// SlackConfig holds messaging-platform credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
}

// GoogleConfig holds Sheets API credentials. Either an OAuth access token
// or an API key works; both empty limits targets to local sources.
type GoogleConfig struct {
	AccessToken string `yaml:"access_token"`
	APIKey      string `yaml:"api_key"`
}

// RunLogConfig locates the append-only run log artifacts.
type RunLogConfig struct {
	Path     string `yaml:"path"`      // flat file, append-or-create
	BoltPath string `yaml:"bolt_path"` // optional bbolt database
}

// ServerConfig holds daemon HTTP settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ScheduleConfig holds the daemon's cron cadence.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Target describes one reminder rule set: a grid to read, a column
// mapping, gates and per-offset message templates.
type Target struct {
	Name        string            `yaml:"name"`
	Enable      bool              `yaml:"enable"`
	SheetID     string            `yaml:"sheet_id"`
	SheetName   string            `yaml:"sheet_name"`
	Source      *sheets.Ref       `yaml:"source"` // overrides sheet_id/sheet_name
	Columns     map[string]string `yaml:"columns"`
	Filters     *filter.Expr      `yaml:"filters"`
	DaysFromNow []int             `yaml:"daysFromNow"`
	Comments    map[string]string `yaml:"comments"`
	BossCC      bool              `yaml:"boss_cc"`
	Channel     string            `yaml:"channel"`
}

// SheetRef resolves the target's grid locator. Targets written in the
// original document shape carry only sheet_id/sheet_name and default to
// the Google source.
func (t *Target) SheetRef() sheets.Ref {
	if t.Source != nil {
		return *t.Source
	}
	return sheets.Ref{Kind: sheets.KindGoogle, SpreadsheetID: t.SheetID, SheetName: t.SheetName}
}

// DisplayName is the name used in logs and metrics labels.
func (t *Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.SheetRef().Name()
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Timezone: DefaultTimezone,
		Slack: SlackConfig{
			BotToken: os.Getenv("SLACK_BOT_TOKEN"),
		},
		RunLog: RunLogConfig{
			Path: filepath.Join(homeDir, ".gasbot", "log.txt"),
		},
		Logging: logging.DefaultConfig(),
		Server: ServerConfig{
			Addr: "127.0.0.1:9090",
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 9 * * *",
		},
		Targets: []*Target{},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return defaults if no config file
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Expand environment variables
	expanded := expandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.RunLog.Path = expandPath(config.RunLog.Path)
	config.RunLog.BoltPath = expandPath(config.RunLog.BoltPath)

	return config, nil
}

// Save saves configuration to a file, last writer wins.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration path
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".gasbot", "config.yaml")
}

var envRef = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// expandEnv expands ${VAR} references. Bare $tokens are left alone so
// comment templates keep their $name and $task placeholders.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}

	for i, t := range c.Targets {
		if !t.Enable {
			continue
		}
		if err := t.validate(); err != nil {
			return fmt.Errorf("target %d (%s): %w", i, t.DisplayName(), err)
		}
	}
	return nil
}

func (t *Target) validate() error {
	if t.Channel == "" {
		return fmt.Errorf("channel is required")
	}

	ref := t.SheetRef()
	switch ref.Kind {
	case "", sheets.KindGoogle:
		if ref.SpreadsheetID == "" || ref.SheetName == "" {
			return fmt.Errorf("google source requires sheet_id and sheet_name")
		}
	case sheets.KindCSV:
		if ref.Path == "" {
			return fmt.Errorf("csv source requires path")
		}
	case sheets.KindSQLite:
		if ref.Path == "" || ref.Table == "" {
			return fmt.Errorf("sqlite source requires path and table")
		}
	default:
		return fmt.Errorf("unknown source kind %q", ref.Kind)
	}

	if len(t.Columns) == 0 {
		return fmt.Errorf("columns mapping is required")
	}
	return nil
}
