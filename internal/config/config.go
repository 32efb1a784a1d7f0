package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration read once at startup.
type Config struct {
	ListenAddr       string        `yaml:"listen_addr"`        // web interface bind address (default: :8080)
	Display          DisplayConfig `yaml:"display"`
	SharedConfigPath string        `yaml:"shared_config_path"` // runtime JSON document (default: ~/.ndi-monitor-config.json)
	Synthetic        bool          `yaml:"synthetic"`          // use synthetic sources instead of NDI
}

// DisplayConfig contains HDMI output settings.
type DisplayConfig struct {
	Width  int `yaml:"width"`   // 0 means native resolution
	Height int `yaml:"height"`
	FadeMS int `yaml:"fade_ms"` // blank transition duration (default: 400)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func validate(cfg *Config) error {
	if (cfg.Display.Width == 0) != (cfg.Display.Height == 0) {
		return fmt.Errorf("display width and height must be set together")
	}
	if cfg.Display.FadeMS < 0 {
		return fmt.Errorf("fade_ms must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Display.FadeMS == 0 {
		cfg.Display.FadeMS = 400
	}
	if cfg.SharedConfigPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.SharedConfigPath = filepath.Join(home, ".ndi-monitor-config.json")
	}
}
