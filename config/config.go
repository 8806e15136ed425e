package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Host backends accepted in the host field.
var hosts = []string{"auto", "jack", "rtmidi"}

// Policies accepted in the onFull field.
var policies = []string{"drop", "retry"}

// Config is the runtime configuration.
type Config struct {
	Client      string `yaml:"client"`      // client name on the host
	Host        string `yaml:"host"`        // auto, jack or rtmidi
	Port        string `yaml:"port"`        // output port name
	Destination string `yaml:"destination"` // substring of the destination port name

	RingSize   int    `yaml:"ringSize"` // bytes per output port
	SampleRate uint32 `yaml:"sampleRate"`
	BufferSize uint32 `yaml:"bufferSize"`

	Window       time.Duration `yaml:"window"`
	LookAhead    time.Duration `yaml:"lookAhead"`
	FillInterval time.Duration `yaml:"fillInterval"`
	MaxLate      time.Duration `yaml:"maxLate"`
	OnFull       string        `yaml:"onFull"`

	Preset string `yaml:"preset"`

	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Client:       "pacemaker",
		Host:         "auto",
		Port:         "out",
		RingSize:     16384,
		SampleRate:   48000,
		BufferSize:   256,
		Window:       5 * time.Second,
		LookAhead:    time.Second,
		FillInterval: 50 * time.Millisecond,
		MaxLate:      20 * time.Millisecond,
		OnFull:       "drop",
		Preset:       "pulse",
		LogLevel:     "info",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pacemaker"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path (ConfigPath if empty). A missing file gives
// the defaults; fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path (ConfigPath if empty).
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field for a usable value.
func (c *Config) Validate() error {
	switch {
	case c.Client == "":
		return errors.New("client name is empty")
	case c.Port == "":
		return errors.New("port name is empty")
	case !oneOf(c.Host, hosts):
		return fmt.Errorf("host %q is not one of %v", c.Host, hosts)
	case !oneOf(c.OnFull, policies):
		return fmt.Errorf("onFull %q is not one of %v", c.OnFull, policies)
	case c.RingSize < 2:
		return fmt.Errorf("ringSize %d is below 2 bytes", c.RingSize)
	case c.SampleRate == 0 || c.BufferSize == 0:
		return fmt.Errorf("sampleRate %d and bufferSize %d must be positive", c.SampleRate, c.BufferSize)
	case c.Window <= 0:
		return fmt.Errorf("window %v must be positive", c.Window)
	case c.LookAhead < 0:
		return fmt.Errorf("lookAhead %v must not be negative", c.LookAhead)
	case c.FillInterval <= 0:
		return fmt.Errorf("fillInterval %v must be positive", c.FillInterval)
	case c.MaxLate < 0:
		return fmt.Errorf("maxLate %v must not be negative", c.MaxLate)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	return nil
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
