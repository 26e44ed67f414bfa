package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment overrides for analysis configuration.
const (
	EnvAnalysisEndpoint   = "ANALYSIS_ENDPOINT"
	EnvAnalysisAPIKey     = "ANALYSIS_API_KEY"
	EnvAnalysisAPIVersion = "ANALYSIS_API_VERSION"
	EnvAnalysisAnalyzer   = "ANALYSIS_ANALYZER"
)

// AnalysisConfig contains the content-understanding service connection settings.
type AnalysisConfig struct {
	Endpoint       string `toml:"endpoint"`
	APIKey         string `toml:"api_key"`
	APIVersion     string `toml:"api_version"`
	Analyzer       string `toml:"analyzer"`
	RequestTimeout string `toml:"request_timeout"`
}

// RequestTimeoutDuration parses and returns the per-request timeout.
func (c *AnalysisConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the analysis configuration.
func (c *AnalysisConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *AnalysisConfig) Merge(overlay *AnalysisConfig) {
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.APIVersion != "" {
		c.APIVersion = overlay.APIVersion
	}
	if overlay.Analyzer != "" {
		c.Analyzer = overlay.Analyzer
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
}

func (c *AnalysisConfig) loadDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = "2024-12-01-preview"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "60s"
	}
}

func (c *AnalysisConfig) loadEnv() {
	if v := os.Getenv(EnvAnalysisEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvAnalysisAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvAnalysisAPIVersion); v != "" {
		c.APIVersion = v
	}
	if v := os.Getenv(EnvAnalysisAnalyzer); v != "" {
		c.Analyzer = v
	}
}

func (c *AnalysisConfig) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key required")
	}
	if c.Analyzer == "" {
		return fmt.Errorf("analyzer required")
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	return nil
}
