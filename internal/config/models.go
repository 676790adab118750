package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/speeddraw/internal/animation"
	"github.com/bryanchriswhite/speeddraw/internal/encoder"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
	"github.com/bryanchriswhite/speeddraw/internal/style"
)

// Config represents the application configuration
type Config struct {
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	// WorkDir is where per-job frame directories are created; empty means the
	// system temp directory.
	WorkDir   string          `json:"work_dir" yaml:"work_dir" mapstructure:"work_dir"`
	Animation AnimationConfig `json:"animation" yaml:"animation" mapstructure:"animation"`
	Encoder   encoder.Config  `json:"encoder" yaml:"encoder" mapstructure:"encoder"`
	Preview   PreviewConfig   `json:"preview" yaml:"preview" mapstructure:"preview"`
	Batch     BatchConfig     `json:"batch" yaml:"batch" mapstructure:"batch"`
}

// AnimationConfig holds the default job settings
type AnimationConfig struct {
	Style                string  `json:"style" yaml:"style" mapstructure:"style"`
	DrawingDuration      float64 `json:"drawing_duration" yaml:"drawing_duration" mapstructure:"drawing_duration"`
	RevealDuration       float64 `json:"reveal_duration" yaml:"reveal_duration" mapstructure:"reveal_duration"`
	FPS                  int     `json:"fps" yaml:"fps" mapstructure:"fps"`
	RevealAreaMultiplier float64 `json:"reveal_area_multiplier" yaml:"reveal_area_multiplier" mapstructure:"reveal_area_multiplier"`
	Mode                 string  `json:"mode" yaml:"mode" mapstructure:"mode"`
	LineColor            string  `json:"line_color" yaml:"line_color" mapstructure:"line_color"`
	BackgroundColor      string  `json:"background_color" yaml:"background_color" mapstructure:"background_color"`
	// Seed fixes the random source; 0 picks a fresh seed per job.
	Seed uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// PreviewConfig represents the live preview server configuration
type PreviewConfig struct {
	// Port is the HTTP port; 0 disables the preview server.
	Port int `json:"port" yaml:"port" mapstructure:"port"`
}

// BatchConfig controls batch runs
type BatchConfig struct {
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Animation: AnimationConfig{
			Style:                style.ClassicStroke.String(),
			DrawingDuration:      8,
			RevealDuration:       10,
			FPS:                  30,
			RevealAreaMultiplier: 1.0,
			Mode:                 string(animation.ModeFull),
			LineColor:            animation.DefaultLineColor,
			BackgroundColor:      animation.DefaultBackgroundColor,
		},
		Encoder: encoder.Config{
			Backend: encoder.BackendFFmpeg,
			Codec:   "libx264",
		},
		Batch: BatchConfig{Workers: 2},
	}
}

// Validate checks value ranges. Colors are checked when a job is built.
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", c.LogLevel)
	}
	a := c.Animation
	if _, err := style.Parse(a.Style); err != nil {
		return err
	}
	switch {
	case a.DrawingDuration <= 0:
		return fmt.Errorf("animation.drawing_duration must be positive")
	case a.RevealDuration < 0:
		return fmt.Errorf("animation.reveal_duration must not be negative")
	case a.FPS <= 0:
		return fmt.Errorf("animation.fps must be positive")
	case a.RevealAreaMultiplier <= 0:
		return fmt.Errorf("animation.reveal_area_multiplier must be positive")
	}
	if _, err := animation.ParseMode(a.Mode); err != nil {
		return fmt.Errorf("invalid animation.mode: %w", err)
	}
	if _, err := encoder.New(c.Encoder); err != nil {
		return err
	}
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return fmt.Errorf("invalid preview.port: %d", c.Preview.Port)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1")
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/speeddraw/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "speeddraw", "config.yaml"), nil
}

// NewManager creates a new configuration manager. An empty configFile uses
// DefaultPath. A missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	// Try to read config file
	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			// Config file not found, create it with defaults
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

// load reads the file on top of the defaults, so keys missing from older
// files keep their default values.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	// Ensure the directory exists
	configDir := m.GetConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// GetViper returns a viper instance holding the current configuration. Keys
// are the dotted yaml paths, e.g. "animation.fps".
func (m *Manager) GetViper() (*viper.Viper, error) {
	data, err := yaml.Marshal(m.Get())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to load config into viper: %w", err)
	}
	return v, nil
}

// Lookup returns the value stored under a dotted key.
func (m *Manager) Lookup(key string) (any, error) {
	v, err := m.GetViper()
	if err != nil {
		return nil, err
	}
	key = strings.ToLower(key)
	if !v.IsSet(key) {
		return nil, fmt.Errorf("configuration key not found: %s", key)
	}
	return v.Get(key), nil
}

// Set updates one dotted key and saves. String values are converted to the
// field's type.
func (m *Manager) Set(key string, value any) error {
	v, err := m.GetViper()
	if err != nil {
		return err
	}
	key = strings.ToLower(key)
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key not found: %s", key)
	}
	v.Set(key, value)

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return m.Update(cfg)
}

// WithOverrides returns the current configuration with every key that is set
// in overrides applied on top. The stored configuration is not modified.
func (m *Manager) WithOverrides(overrides *viper.Viper) (*Config, error) {
	v, err := m.GetViper()
	if err != nil {
		return nil, err
	}
	for _, key := range overrides.AllKeys() {
		if overrides.IsSet(key) {
			v.Set(key, overrides.Get(key))
		}
	}
	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid override: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeAnimation applies overrides, keyed like the animation section of the
// config file, on top of base.
func MergeAnimation(base AnimationConfig, overrides map[string]any) (AnimationConfig, error) {
	data, err := yaml.Marshal(base)
	if err != nil {
		return base, fmt.Errorf("failed to marshal animation config: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return base, fmt.Errorf("failed to load animation config: %w", err)
	}
	for key, value := range overrides {
		key = strings.ToLower(key)
		if !v.IsSet(key) {
			return base, fmt.Errorf("unknown animation setting: %s", key)
		}
		v.Set(key, value)
	}
	var out AnimationConfig
	if err := v.Unmarshal(&out); err != nil {
		return base, fmt.Errorf("invalid animation setting: %w", err)
	}
	return out, nil
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
