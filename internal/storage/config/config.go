// Package config reads and writes protonctl's YAML configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultReleaseRepo is the GitHub repository Proton-GE is published from
const DefaultReleaseRepo = "GloriousEggroll/proton-ge-custom"

// Config holds global application settings
type Config struct {
	LinuxRunner string `yaml:"linux_runner"` // "auto" or a runner path
	LogLevel    string `yaml:"log_level"`
	CachePath   string `yaml:"cache_path,omitempty"`
	ReleaseRepo string `yaml:"release_repo"`
	Keybindings string `yaml:"keybindings"` // "vim" or "standard"
}

// Default returns the configuration used when no config.yaml exists
func Default() *Config {
	return &Config{
		LinuxRunner: domain.RunnerAuto,
		LogLevel:    zerolog.InfoLevel.String(),
		ReleaseRepo: DefaultReleaseRepo,
		Keybindings: "vim",
	}
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // Return defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Empty keys in the file fall back to defaults
	if cfg.LinuxRunner == "" {
		cfg.LinuxRunner = domain.RunnerAuto
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = zerolog.InfoLevel.String()
	}
	if cfg.ReleaseRepo == "" {
		cfg.ReleaseRepo = DefaultReleaseRepo
	}
	if cfg.Keybindings == "" {
		cfg.Keybindings = "vim"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	owner, name, ok := strings.Cut(c.ReleaseRepo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: release_repo must be owner/name, got %q", domain.ErrInvalidConfig, c.ReleaseRepo)
	}
	if c.Keybindings != "vim" && c.Keybindings != "standard" {
		return fmt.Errorf("%w: keybindings must be vim or standard, got %q", domain.ErrInvalidConfig, c.Keybindings)
	}
	return nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
