// Package config provides client-side configuration for coderev.
//
// Defaults work out of the box; an optional YAML file at
// ~/.config/coderev/config.yaml overrides individual values. Durations are
// written as Go duration strings ("90s", "5m").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/darioush/coderev-codespaces/internal/constants"
)

// Config holds the client tunables.
type Config struct {
	// MachineType is the codespace machine requested on creation.
	MachineType string

	// IdleTimeoutMinutes is how long a codespace idles before GitHub stops it.
	IdleTimeoutMinutes int

	// BootTimeout bounds waiting for a codespace to become Available.
	BootTimeout time.Duration

	// PollInterval is the delay between codespace state polls.
	PollInterval time.Duration

	// HealthTimeout bounds waiting for the API server's /health endpoint.
	HealthTimeout time.Duration

	// HealthPollInterval is the delay between /health polls.
	HealthPollInterval time.Duration

	// AskTimeout bounds a single /ask request end to end.
	AskTimeout time.Duration

	// ServerPort is the port the API server listens on inside the codespace.
	ServerPort int
}

// fileConfig is the YAML shape of the config file. Durations are strings so
// users can write "5m" instead of nanosecond counts.
type fileConfig struct {
	MachineType        string `yaml:"machine_type"`
	IdleTimeoutMinutes int    `yaml:"idle_timeout_minutes"`
	BootTimeout        string `yaml:"boot_timeout"`
	PollInterval       string `yaml:"poll_interval"`
	HealthTimeout      string `yaml:"health_timeout"`
	HealthPollInterval string `yaml:"health_poll_interval"`
	AskTimeout         string `yaml:"ask_timeout"`
	ServerPort         int    `yaml:"server_port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MachineType:        "basicLinux32gb",
		IdleTimeoutMinutes: 30,
		BootTimeout:        5 * time.Minute,
		PollInterval:       3 * time.Second,
		HealthTimeout:      2 * time.Minute,
		HealthPollInterval: 2 * time.Second,
		AskTimeout:         3 * time.Minute,
		ServerPort:         constants.ServerPort,
	}
}

// Path returns the expected config file location.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, constants.ClientConfigDirName, constants.ClientConfigFileName), nil
}

// Load returns the defaults overlaid with the user's config file, if any.
// A missing file is not an error; a malformed one is.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), err
	}
	return LoadFile(path)
}

// LoadFile loads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := apply(&cfg, file); err != nil {
		return cfg, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// apply overlays the file values onto cfg. Unset file fields keep defaults.
func apply(cfg *Config, file fileConfig) error {
	if file.MachineType != "" {
		cfg.MachineType = file.MachineType
	}
	if file.IdleTimeoutMinutes != 0 {
		cfg.IdleTimeoutMinutes = file.IdleTimeoutMinutes
	}
	if file.ServerPort != 0 {
		cfg.ServerPort = file.ServerPort
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"boot_timeout", file.BootTimeout, &cfg.BootTimeout},
		{"poll_interval", file.PollInterval, &cfg.PollInterval},
		{"health_timeout", file.HealthTimeout, &cfg.HealthTimeout},
		{"health_poll_interval", file.HealthPollInterval, &cfg.HealthPollInterval},
		{"ask_timeout", file.AskTimeout, &cfg.AskTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c Config) validate() error {
	if c.MachineType == "" {
		return fmt.Errorf("machine_type must not be empty")
	}
	if c.IdleTimeoutMinutes < 0 {
		return fmt.Errorf("idle_timeout_minutes must not be negative")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port %d out of range", c.ServerPort)
	}
	for name, d := range map[string]time.Duration{
		"boot_timeout":         c.BootTimeout,
		"poll_interval":        c.PollInterval,
		"health_timeout":       c.HealthTimeout,
		"health_poll_interval": c.HealthPollInterval,
		"ask_timeout":          c.AskTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
