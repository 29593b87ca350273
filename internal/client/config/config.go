// Package config loads runtime configuration for the storefront CLI.
//
// Sources, in increasing precedence: built-in defaults, an optional JSON file
// named by -c/-config, then command-line flags.
//
//	-a string    base URL of the storefront HTTP API
//	-t duration  per-request timeout (e.g. "5s")
//
// JSON keys mirror the flags:
//
//	{
//	  "server_url": "http://127.0.0.1:3000",
//	  "request_timeout": "5s"
//	}
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the storefront CLI.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.RequestTimeout = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
