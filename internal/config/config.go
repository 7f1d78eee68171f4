package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gregLibert/cardsession/pkg/device"
	"github.com/gregLibert/cardsession/pkg/journal"
	"github.com/gregLibert/cardsession/pkg/reader"
)

type Config struct {
	Session SessionConfig `yaml:"session"`
	Readers ReadersConfig `yaml:"readers"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
}

type SessionConfig struct {
	ShareMode      string   `yaml:"share_mode"`
	Disposition    string   `yaml:"disposition"`
	Protocols      []string `yaml:"protocols"`
	AutoConnect    bool     `yaml:"auto_connect"`
	AutoDisconnect bool     `yaml:"auto_disconnect"`
	MaxChainLength int      `yaml:"max_chain_length"`
	Predicates     string   `yaml:"predicates"`
}

type ReadersConfig struct {
	// Ignore lists substrings of reader names to leave alone.
	Ignore []string `yaml:"ignore"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type JournalConfig struct {
	// Path of the journal database; empty disables the journal.
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			ShareMode:      "shared",
			Disposition:    "leave",
			AutoConnect:    true,
			AutoDisconnect: true,
			MaxChainLength: 8,
			Predicates:     "default",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	cfg := Default()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := reader.ParseShareMode(c.Session.ShareMode); err != nil {
		return fmt.Errorf("config.session.share_mode: %w", err)
	}
	if _, err := reader.ParseDisposition(c.Session.Disposition); err != nil {
		return fmt.Errorf("config.session.disposition: %w", err)
	}
	if _, err := reader.ParseProtocols(c.Session.Protocols); err != nil {
		return fmt.Errorf("config.session.protocols: %w", err)
	}
	if _, err := reader.PredicatesByName(c.Session.Predicates); err != nil {
		return fmt.Errorf("config.session.predicates: %w", err)
	}
	if c.Session.MaxChainLength < 1 || c.Session.MaxChainLength > 255 {
		return fmt.Errorf("config.session.max_chain_length must be 1..255")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config.log.level: %w", err)
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be auto, text or json")
	}

	for _, s := range c.Readers.Ignore {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("config.readers.ignore must not contain empty entries")
		}
	}
	return nil
}

// DeviceOptions translates the session section into device options.
func (c *Config) DeviceOptions(log logrus.FieldLogger) ([]device.Option, error) {
	mode, err := reader.ParseShareMode(c.Session.ShareMode)
	if err != nil {
		return nil, err
	}
	disposition, err := reader.ParseDisposition(c.Session.Disposition)
	if err != nil {
		return nil, err
	}
	protocols, err := reader.ParseProtocols(c.Session.Protocols)
	if err != nil {
		return nil, err
	}
	predicates, err := reader.PredicatesByName(c.Session.Predicates)
	if err != nil {
		return nil, err
	}

	return []device.Option{
		device.WithShareMode(mode),
		device.WithDisposition(disposition),
		device.WithProtocols(protocols),
		device.WithAutoConnect(c.Session.AutoConnect),
		device.WithAutoDisconnect(c.Session.AutoDisconnect),
		device.WithPredicates(predicates),
		device.WithMaxChainLength(c.Session.MaxChainLength),
		device.WithLogger(log),
	}, nil
}

// Ignored reports whether a reader is excluded by readers.ignore.
func (c *Config) Ignored(name string) bool {
	for _, s := range c.Readers.Ignore {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func (c *Config) resolvePaths(configPath string) {
	p := c.Journal.Path
	if p == "" || p == journal.InMemory || filepath.IsAbs(p) {
		return
	}
	c.Journal.Path = filepath.Join(filepath.Dir(configPath), p)
}
