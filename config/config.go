// Package config implements the runtime's configuration: resource
// limits and pool sizing, with defaults and validation, plus YAML
// loading for the CLI entry point.
//
// Grounded on original_source/.../config.rs for the field list and
// default constants, flattened from Rust's RuntimeConfig/ResourceLimits
// split into one struct, and on cli/config/config.go for the
// YAML-loading shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxInstances       = 10
	DefaultMinInstances       = 1
	DefaultMemoryLimitBytes   = 32 * 1024 * 1024
	DefaultStackSizeBytes     = 1 * 1024 * 1024
	DefaultTimeoutMs          = 5000
	DefaultMaxHostCalls       = 10000
	DefaultMaxStateMutations  = 1000
	DefaultMaxEvents          = 100
	DefaultCacheDir           = ".panelrt-cache"
	DefaultMaxCacheSizeBytes  = 64 * 1024 * 1024
	DefaultSuspensionTTLMs    = 300000

	minMemoryLimitBytes = 1 * 1024 * 1024
	minStackSizeBytes   = 64 * 1024
)

// RuntimeConfig carries every tunable the engine façade, pool, cache,
// and host functions read at construction time.
type RuntimeConfig struct {
	MaxInstances       int    `yaml:"max_instances"`
	MinInstances       int    `yaml:"min_instances"`
	MemoryLimitBytes   int64  `yaml:"memory_limit_bytes"`
	StackSizeBytes     int64  `yaml:"stack_size_bytes"`
	TimeoutMs          int64  `yaml:"timeout_ms"`
	MaxHostCalls       int    `yaml:"max_host_calls"`
	MaxStateMutations  int    `yaml:"max_state_mutations"`
	MaxEvents          int    `yaml:"max_events"`
	CacheDir           string `yaml:"cache_dir"`
	MaxCacheSizeBytes  int64  `yaml:"max_cache_size_bytes"`
	EnableAOT          bool   `yaml:"enable_aot"`
	Debug              bool   `yaml:"debug"`
	SuspensionTTLMs    int64  `yaml:"suspension_ttl_ms"`

	// Export and EffectPolicy are optional sub-blocks; nil/zero means
	// "not configured" and the corresponding feature is disabled.
	Export *ExportConfig `yaml:"export,omitempty"`
	Policy PolicyConfig  `yaml:"policy,omitempty"`
}

// ExportConfig configures the optional artifact/metrics export sink.
type ExportConfig struct {
	Backend  string `yaml:"backend"` // "fs" or "s3"
	Path     string `yaml:"path"`    // fs root, or s3 key prefix
	Bucket   string `yaml:"bucket"`  // s3 only
	Region   string `yaml:"region"`  // s3 only
	Dataset  string `yaml:"dataset"`
}

// PolicyConfig configures the effect-overflow policy.
type PolicyConfig struct {
	Name            string `yaml:"name"` // "strict" (default), "buffered", "streaming"
	BufferOverflow  int    `yaml:"buffer_overflow"`
}

// Default returns a RuntimeConfig populated with every documented
// default. This is the primary construction path for embedders;
// Load is for the CLI entry point.
func Default() *RuntimeConfig {
	return &RuntimeConfig{
		MaxInstances:      DefaultMaxInstances,
		MinInstances:      DefaultMinInstances,
		MemoryLimitBytes:  DefaultMemoryLimitBytes,
		StackSizeBytes:    DefaultStackSizeBytes,
		TimeoutMs:         DefaultTimeoutMs,
		MaxHostCalls:      DefaultMaxHostCalls,
		MaxStateMutations: DefaultMaxStateMutations,
		MaxEvents:         DefaultMaxEvents,
		CacheDir:          DefaultCacheDir,
		MaxCacheSizeBytes: DefaultMaxCacheSizeBytes,
		SuspensionTTLMs:   DefaultSuspensionTTLMs,
		Policy:            PolicyConfig{Name: "strict"},
	}
}

// Load reads a RuntimeConfig from a YAML file, starting from Default()
// so any field the file omits keeps its default value.
func Load(path string) (*RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the documented constraints: max_instances ≥ 1;
// memory_limit_bytes ≥ 1 MiB; stack_size_bytes ≥ 64 KiB.
func (c *RuntimeConfig) Validate() error {
	if c.MaxInstances < 1 {
		return fmt.Errorf("max_instances must be >= 1, got %d", c.MaxInstances)
	}
	if c.MinInstances < 0 || c.MinInstances > c.MaxInstances {
		return fmt.Errorf("min_instances must be between 0 and max_instances (%d), got %d", c.MaxInstances, c.MinInstances)
	}
	if c.MemoryLimitBytes < minMemoryLimitBytes {
		return fmt.Errorf("memory_limit_bytes must be >= %d, got %d", minMemoryLimitBytes, c.MemoryLimitBytes)
	}
	if c.StackSizeBytes < minStackSizeBytes {
		return fmt.Errorf("stack_size_bytes must be >= %d, got %d", minStackSizeBytes, c.StackSizeBytes)
	}
	return nil
}
