// ABOUTME: YAML configuration parsing and validation
// ABOUTME: Defines structure for the multi-station now-playing relay
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenHost     = "0.0.0.0"
	DefaultListenPort     = 8000
	DefaultScheme         = "wss"
	DefaultHTTPScheme     = "https"
	DefaultReconnectMs    = 500
	DefaultFetchTimeoutMs = 5000
	DefaultHistorySize    = 20
	DefaultLogLevel       = "info"
)

type Config struct {
	Listen   ListenConfig    `yaml:"listen"`
	Feed     FeedConfig      `yaml:"feed"`
	History  HistoryConfig   `yaml:"history"`
	Display  DisplayConfig   `yaml:"display"`
	Stations []StationConfig `yaml:"stations"`
	Logging  LoggingConfig   `yaml:"logging"`
}

type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type FeedConfig struct {
	Host           string `yaml:"host"`
	Scheme         string `yaml:"scheme"`
	HTTPScheme     string `yaml:"http_scheme"`
	ReconnectMs    int    `yaml:"reconnect_ms"`
	FetchTimeoutMs int    `yaml:"fetch_timeout_ms"`
}

type HistoryConfig struct {
	Size int `yaml:"size"`
}

type DisplayConfig struct {
	Format              string `yaml:"format"`
	StripSingleQuotes   bool   `yaml:"strip_single_quotes"`
	NormalizeWhitespace bool   `yaml:"normalize_whitespace"`
}

type StationConfig struct {
	ID    string `yaml:"id"`
	Host  string `yaml:"host"`
	Prime *bool  `yaml:"prime"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Listen.Host == "" {
		c.Listen.Host = DefaultListenHost
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = DefaultListenPort
	}
	if c.Feed.Scheme == "" {
		c.Feed.Scheme = DefaultScheme
	}
	if c.Feed.HTTPScheme == "" {
		c.Feed.HTTPScheme = DefaultHTTPScheme
	}
	if c.Feed.ReconnectMs == 0 {
		c.Feed.ReconnectMs = DefaultReconnectMs
	}
	if c.Feed.FetchTimeoutMs == 0 {
		c.Feed.FetchTimeoutMs = DefaultFetchTimeoutMs
	}
	if c.History.Size == 0 {
		c.History.Size = DefaultHistorySize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate reports every invalid field as criterio.FieldErrors.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		errs = errs.Append("listen.port", fmt.Errorf("must be between 1 and 65535, got %d", c.Listen.Port))
	}
	if c.Feed.Scheme != "ws" && c.Feed.Scheme != "wss" {
		errs = errs.Append("feed.scheme", fmt.Errorf("must be ws or wss, got %q", c.Feed.Scheme))
	}
	if c.Feed.HTTPScheme != "http" && c.Feed.HTTPScheme != "https" {
		errs = errs.Append("feed.http_scheme", fmt.Errorf("must be http or https, got %q", c.Feed.HTTPScheme))
	}
	if c.Feed.ReconnectMs < 0 {
		errs = errs.Append("feed.reconnect_ms", fmt.Errorf("must not be negative"))
	}
	if c.Feed.FetchTimeoutMs < 0 {
		errs = errs.Append("feed.fetch_timeout_ms", fmt.Errorf("must not be negative"))
	}
	if c.History.Size < 1 {
		errs = errs.Append("history.size", fmt.Errorf("must be positive, got %d", c.History.Size))
	}

	if len(c.Stations) == 0 {
		errs = errs.Append("stations", fmt.Errorf("at least one station is required"))
	}

	seen := make(map[string]bool)
	for i, st := range c.Stations {
		field := fmt.Sprintf("stations[%d]", i)

		if st.ID == "" {
			errs = errs.Append(field+".id", fmt.Errorf("is required"))
			continue
		}
		if seen[st.ID] {
			errs = errs.Append(field+".id", fmt.Errorf("duplicate id %q", st.ID))
			continue
		}
		seen[st.ID] = true

		if st.Host == "" && c.Feed.Host == "" {
			errs = errs.Append(field+".host", fmt.Errorf("is required when feed.host is empty"))
		}
	}

	return errs.ToError()
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Listen.Host, c.Listen.Port)
}

func (f FeedConfig) ReconnectDelay() time.Duration {
	return time.Duration(f.ReconnectMs) * time.Millisecond
}

func (f FeedConfig) FetchTimeout() time.Duration {
	return time.Duration(f.FetchTimeoutMs) * time.Millisecond
}

// HostFor returns the station's host, falling back to the feed host.
func (c *Config) HostFor(st StationConfig) string {
	if st.Host != "" {
		return st.Host
	}
	return c.Feed.Host
}

// ShouldPrime reports whether the station fetches the static document at
// start. Unset means yes.
func (s StationConfig) ShouldPrime() bool {
	return s.Prime == nil || *s.Prime
}
