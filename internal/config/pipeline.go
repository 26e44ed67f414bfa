package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/construehq/construe/internal/poller"
)

// Environment overrides for pipeline configuration.
const (
	EnvPipelineMaxConcurrent = "PIPELINE_MAX_CONCURRENT"
	EnvPipelineMaxWait       = "PIPELINE_POLL_MAX_WAIT"
	EnvPipelineRetentionTTL  = "PIPELINE_RETENTION_TTL"
)

// PipelineConfig bounds document pipeline execution: polling behavior
// and registry retention.
type PipelineConfig struct {
	// MaxConcurrent caps the number of detached pipelines running at once.
	MaxConcurrent int `toml:"max_concurrent"`

	PollInitialDelay  string  `toml:"poll_initial_delay"`
	PollMaxDelay      string  `toml:"poll_max_delay"`
	PollMultiplier    float64 `toml:"poll_multiplier"`
	PollMaxWait       string  `toml:"poll_max_wait"`
	PollMaxAttempts   int     `toml:"poll_max_attempts"`
	PollFailureBudget int     `toml:"poll_failure_budget"`

	// RetentionTTL is how long terminal tasks stay in the registry.
	// Zero or negative disables eviction.
	RetentionTTL  string `toml:"retention_ttl"`
	SweepInterval string `toml:"sweep_interval"`
}

// Policy returns the polling policy assembled from configuration.
func (c *PipelineConfig) Policy() poller.Policy {
	p := poller.DefaultPolicy()
	if d, err := time.ParseDuration(c.PollInitialDelay); err == nil && d > 0 {
		p.InitialDelay = d
	}
	if d, err := time.ParseDuration(c.PollMaxDelay); err == nil && d > 0 {
		p.MaxDelay = d
	}
	if c.PollMultiplier >= 1 {
		p.Multiplier = c.PollMultiplier
	}
	if d, err := time.ParseDuration(c.PollMaxWait); err == nil && d > 0 {
		p.MaxWait = d
	}
	if c.PollMaxAttempts > 0 {
		p.MaxAttempts = c.PollMaxAttempts
	}
	if c.PollFailureBudget > 0 {
		p.FailureBudget = c.PollFailureBudget
	}
	return p
}

// RetentionTTLDuration parses and returns the registry retention TTL.
func (c *PipelineConfig) RetentionTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetentionTTL)
	return d
}

// SweepIntervalDuration parses and returns the janitor sweep interval.
func (c *PipelineConfig) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the pipeline configuration.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.MaxConcurrent != 0 {
		c.MaxConcurrent = overlay.MaxConcurrent
	}
	if overlay.PollInitialDelay != "" {
		c.PollInitialDelay = overlay.PollInitialDelay
	}
	if overlay.PollMaxDelay != "" {
		c.PollMaxDelay = overlay.PollMaxDelay
	}
	if overlay.PollMultiplier != 0 {
		c.PollMultiplier = overlay.PollMultiplier
	}
	if overlay.PollMaxWait != "" {
		c.PollMaxWait = overlay.PollMaxWait
	}
	if overlay.PollMaxAttempts != 0 {
		c.PollMaxAttempts = overlay.PollMaxAttempts
	}
	if overlay.PollFailureBudget != 0 {
		c.PollFailureBudget = overlay.PollFailureBudget
	}
	if overlay.RetentionTTL != "" {
		c.RetentionTTL = overlay.RetentionTTL
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 16
	}
	if c.PollInitialDelay == "" {
		c.PollInitialDelay = "2s"
	}
	if c.PollMaxDelay == "" {
		c.PollMaxDelay = "30s"
	}
	if c.PollMultiplier == 0 {
		c.PollMultiplier = 1.5
	}
	if c.PollMaxWait == "" {
		c.PollMaxWait = "5m"
	}
	if c.PollMaxAttempts == 0 {
		c.PollMaxAttempts = 60
	}
	if c.PollFailureBudget == 0 {
		c.PollFailureBudget = 3
	}
	if c.RetentionTTL == "" {
		c.RetentionTTL = "24h"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "5m"
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineMaxConcurrent); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv(EnvPipelineMaxWait); v != "" {
		c.PollMaxWait = v
	}
	if v := os.Getenv(EnvPipelineRetentionTTL); v != "" {
		c.RetentionTTL = v
	}
}

func (c *PipelineConfig) validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be positive")
	}
	if c.PollMultiplier < 1 {
		return fmt.Errorf("poll_multiplier must be >= 1")
	}
	for name, v := range map[string]string{
		"poll_initial_delay": c.PollInitialDelay,
		"poll_max_delay":     c.PollMaxDelay,
		"poll_max_wait":      c.PollMaxWait,
		"retention_ttl":      c.RetentionTTL,
		"sweep_interval":     c.SweepInterval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
