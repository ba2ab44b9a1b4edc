package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"healthboard/internal/models"
)

// Config represents configuration data for the dashboard.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr is the HTTP listen address of the dashboard.
	Addr string `koanf:"addr"`
	// IntervalSeconds is the period between poll cycles.
	IntervalSeconds int `koanf:"interval_seconds"`
	// RequestTimeoutSeconds bounds each health request; 0 disables the timeout.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`
	// DiskSpaceComponent names the component rendered with a usage chart.
	DiskSpaceComponent string          `koanf:"disk_space_component"`
	Targets            []models.Target `koanf:"targets"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":8080",
		IntervalSeconds:       10,
		RequestTimeoutSeconds: 0,
		DiskSpaceComponent:    "diskSpace",
		Targets: []models.Target{
			{Name: "Books Service", URL: "http://localhost:8081/actuator/health"},
			{Name: "Users Service", URL: "http://localhost:8082/actuator/health"},
			{Name: "Orders Service", URL: "http://localhost:8083/actuator/health"},
		},
	}
}

// Interval returns the poll period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request timeout, zero meaning none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate checks the configuration for values the dashboard cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: interval_seconds must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("%w: request_timeout_seconds must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DiskSpaceComponent) == "" {
		return fmt.Errorf("%w: disk_space_component must not be empty", ErrInvalidConfig)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: configuration must define at least one target", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Targets))
	for i, t := range c.Targets {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("%w: target %d is missing a name", ErrInvalidConfig, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate target name %q", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}

		u, err := url.Parse(strings.TrimSpace(t.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: target %q needs an absolute http(s) url", ErrInvalidConfig, name)
		}
	}
	return nil
}
