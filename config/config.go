// Package config loads user configuration from config.yaml in the user config
// directory. A missing file yields defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/timer"
	"gopkg.in/yaml.v3"
)

const fileName = "config.yaml"

type Config struct {
	BackendURL   string
	Listen       string
	Language     string
	SoundEnabled bool
	DownloadDir  string
	Device       string
	GeminiModel  string
	Timer        timer.Settings

	// Secrets come from the environment only and are never saved.
	GeminiAPIKey string
}

type yamlConfig struct {
	BackendURL   string    `yaml:"backend_url,omitempty"`
	Listen       string    `yaml:"listen,omitempty"`
	Language     string    `yaml:"language,omitempty"`
	SoundEnabled *bool     `yaml:"sound_enabled,omitempty"`
	DownloadDir  string    `yaml:"download_dir,omitempty"`
	Device       string    `yaml:"device,omitempty"`
	GeminiModel  string    `yaml:"gemini_model,omitempty"`
	Timer        yamlTimer `yaml:"timer,omitempty"`
}

type yamlTimer struct {
	FocusMinutes      int `yaml:"focus_minutes,omitempty"`
	ShortBreakMinutes int `yaml:"short_break_minutes,omitempty"`
	LongBreakMinutes  int `yaml:"long_break_minutes,omitempty"`
	Cycles            int `yaml:"cycles,omitempty"`
}

func Default() Config {
	download := "."
	if home, err := os.UserHomeDir(); err == nil {
		download = filepath.Join(home, "Downloads")
	}
	return Config{
		BackendURL:   "http://localhost:5000",
		Listen:       ":5000",
		Language:     "en",
		SoundEnabled: true,
		DownloadDir:  download,
		GeminiModel:  "gemini-2.0-flash",
		Timer:        timer.DefaultSettings(),
	}
}

// DefaultPath is <user config dir>/sensory-support-hub/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, log.AppName, fileName), nil
}

// Load reads path (or DefaultPath when empty) and applies environment
// overrides. Timer values outside their bounds are rejected.
func Load(path string) (Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	if err := cfg.Timer.Validate(); err != nil {
		return cfg, fmt.Errorf("config timer: %w", err)
	}
	return cfg, nil
}

// loadFile reads the file alone, without environment overrides.
func loadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config file: %w", err)
	default:
		var fileData yamlConfig
		if err := yaml.Unmarshal(raw, &fileData); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
		apply(&cfg, fileData)
	}
	return cfg, nil
}

// Update applies fn to the saved configuration and writes it back. Values
// that only came from the environment stay out of the file.
func Update(path string, fn func(*Config)) error {
	cfg, err := loadFile(path)
	if err != nil {
		return err
	}
	fn(&cfg)
	if err := cfg.Timer.Validate(); err != nil {
		return fmt.Errorf("config timer: %w", err)
	}
	return Save(path, cfg)
}

// Save writes cfg to path (or DefaultPath). Secrets are left out.
func Save(path string, cfg Config) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	sound := cfg.SoundEnabled
	fileData := yamlConfig{
		BackendURL:   cfg.BackendURL,
		Listen:       cfg.Listen,
		Language:     cfg.Language,
		SoundEnabled: &sound,
		DownloadDir:  cfg.DownloadDir,
		Device:       cfg.Device,
		GeminiModel:  cfg.GeminiModel,
		Timer: yamlTimer{
			FocusMinutes:      cfg.Timer.Focus,
			ShortBreakMinutes: cfg.Timer.ShortBreak,
			LongBreakMinutes:  cfg.Timer.LongBreak,
			Cycles:            cfg.Timer.Cycles,
		},
	}
	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func apply(cfg *Config, f yamlConfig) {
	if f.BackendURL != "" {
		cfg.BackendURL = f.BackendURL
	}
	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	if f.Language != "" {
		cfg.Language = f.Language
	}
	if f.SoundEnabled != nil {
		cfg.SoundEnabled = *f.SoundEnabled
	}
	if f.DownloadDir != "" {
		cfg.DownloadDir = f.DownloadDir
	}
	if f.Device != "" {
		cfg.Device = f.Device
	}
	if f.GeminiModel != "" {
		cfg.GeminiModel = f.GeminiModel
	}
	if f.Timer.FocusMinutes != 0 {
		cfg.Timer.Focus = f.Timer.FocusMinutes
	}
	if f.Timer.ShortBreakMinutes != 0 {
		cfg.Timer.ShortBreak = f.Timer.ShortBreakMinutes
	}
	if f.Timer.LongBreakMinutes != 0 {
		cfg.Timer.LongBreak = f.Timer.LongBreakMinutes
	}
	if f.Timer.Cycles != 0 {
		cfg.Timer.Cycles = f.Timer.Cycles
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SENSORY_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("SENSORY_LISTEN"); v != "" {
		cfg.Listen = v
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
}
