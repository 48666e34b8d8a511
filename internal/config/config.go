// Package config holds the small set of values an application embedding
// vaultsync supplies at startup: server URL, HTTP timeout, and the
// session-store directory. It is a flat struct built via functional
// options rather than a JSON-file-backed config service, since the core
// has no opinion on config file format — the application supplies values
// directly.
package config

import "time"

// Config is the set of values the CLI composition root needs; the
// crypto/sync core packages never depend on it directly.
type Config struct {
	ServerURL   string
	HTTPTimeout time.Duration
	SessionDir  string
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithServerURL sets the backend's base URL.
func WithServerURL(url string) Option {
	return func(c *Config) { c.ServerURL = url }
}

// WithHTTPTimeout overrides the default HTTP client timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Config) { c.HTTPTimeout = d }
}

// WithSessionDir overrides the directory the CLI's localstore opens its
// goleveldb database under.
func WithSessionDir(dir string) Option {
	return func(c *Config) { c.SessionDir = dir }
}

// New builds a Config with sensible defaults, applying opts in order.
func New(opts ...Option) *Config {
	c := &Config{
		HTTPTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
