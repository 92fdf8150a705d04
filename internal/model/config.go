package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ReminderConfig holds the audio reminder settings.
type ReminderConfig struct {
	// PeriodSec is the recurring check period driven by the dashboard
	// countdown.
	PeriodSec int `mapstructure:"period_sec" yaml:"period_sec"`

	// PlayerCommand is the external command used to play the reminder
	// clip (e.g., "afplay", "paplay", "mpg123"). Empty disables audio
	// output while keeping the scheduler running.
	PlayerCommand string `mapstructure:"player_command" yaml:"player_command"`

	// ClipPath is the audio file passed to PlayerCommand.
	ClipPath string `mapstructure:"clip_path" yaml:"clip_path"`

	// Repeats is how many times the clip plays per alert.
	Repeats int `mapstructure:"repeats" yaml:"repeats"`

	// GapMillis is the pause between repetitions.
	GapMillis int `mapstructure:"gap_millis" yaml:"gap_millis"`

	// MaxWaitMillis bounds a single repetition even if the player never
	// reports the end of the clip.
	MaxWaitMillis int `mapstructure:"max_wait_millis" yaml:"max_wait_millis"`
}

// StoreConfig holds the local ticket database settings.
type StoreConfig struct {
	// Path is the SQLite database location.
	Path string `mapstructure:"path" yaml:"path"`

	// PollIntervalSec is how often the change watcher fingerprints the
	// ticket table.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Reminder ReminderConfig `mapstructure:"reminder" yaml:"reminder"`

	// LogPath is where the debug log is written. The TUI owns the
	// terminal, so logs never go to stderr.
	LogPath string `mapstructure:"log_path" yaml:"log_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/triage/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "triage", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dataDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "triage")
	}

	return &AppConfig{
		Store: StoreConfig{
			Path:            filepath.Join(dataDir, "tickets.db"),
			PollIntervalSec: 2,
		},
		Reminder: ReminderConfig{
			PeriodSec:     60,
			Repeats:       3,
			GapMillis:     100,
			MaxWaitMillis: 3000,
		},
		LogPath:  filepath.Join(dataDir, "triage.log"),
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultAppConfig()
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("store.poll_interval_sec", defaults.Store.PollIntervalSec)
	v.SetDefault("reminder.period_sec", defaults.Reminder.PeriodSec)
	v.SetDefault("reminder.repeats", defaults.Reminder.Repeats)
	v.SetDefault("reminder.gap_millis", defaults.Reminder.GapMillis)
	v.SetDefault("reminder.max_wait_millis", defaults.Reminder.MaxWaitMillis)
	v.SetDefault("log_path", defaults.LogPath)
	v.SetDefault("log_level", defaults.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("reminder", cfg.Reminder)
	v.Set("log_path", cfg.LogPath)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
