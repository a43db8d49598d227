// Package config loads the TOML configuration files consumed by the
// Director and Worker processes: typed structs decoded with
// github.com/pelletier/go-toml/v2, with defaults applied to the zero-valued
// fields that have one (a zero cache size, for one, stays zero).
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/faasnet/faasnet/internal/faaserr"
)

// SelectionStrategy enumerates the Director's worker-selection policy for
// a func_id with more than one hosting Worker.
type SelectionStrategy string

const (
	StrategyRoundRobin SelectionStrategy = "Round-Robin"
	StrategyRandom     SelectionStrategy = "Random"
)

// DirectorConfig is the Director process's TOML document.
type DirectorConfig struct {
	Network struct {
		DirectorIPAddr string `toml:"director_ip_addr"`
		DirectorPort   int    `toml:"director_port"`
	} `toml:"network"`

	Workers struct {
		HeartbeatCheckIntervalMs     int               `toml:"heartbeat_check_interval_ms"`
		ExpectedHeartbeatIntervalMs  int               `toml:"expected_heartbeat_interval_ms"`
		SynchronizationIntervalMs    int               `toml:"synchronization_interval_ms"`
		WorkerSelectionStrategy      SelectionStrategy `toml:"worker_selection_strategy"`
	} `toml:"workers"`

	// Diagnostics holds the HTTP listen address for the read-only
	// health/metrics/debug surface.
	Diagnostics struct {
		HTTPAddr string `toml:"http_addr"`
	} `toml:"diagnostics"`
}

// WorkerConfig is the Worker process's TOML document.
type WorkerConfig struct {
	Network struct {
		DirectorIPAddr       string `toml:"director_ip_addr"`
		DirectorPort         int    `toml:"director_port"`
		HeartbeatIntervalMs  int    `toml:"heartbeat_interval_ms"`
	} `toml:"network"`

	Behavior struct {
		Caching struct {
			Policy  string `toml:"policy"`
			MaxSize int    `toml:"max_size"`
		} `toml:"caching"`
		ShutdownPersistence bool   `toml:"shutdown_persistence"`
		DumpFile            string `toml:"dump_file"`
	} `toml:"behavior"`

	Statistics struct {
		Enabled bool `toml:"enabled"`
	} `toml:"statistics"`
}

// LoadDirectorConfig reads and decodes a Director TOML file, applying the
// defaults below for any zero-valued field.
func LoadDirectorConfig(path string) (*DirectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faaserr.ConfigErrorErr("reading director config %s: %v", path, err)
	}

	cfg := &DirectorConfig{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, faaserr.ConfigErrorErr("parsing director config %s: %v", path, err)
	}

	if cfg.Network.DirectorPort == 0 {
		cfg.Network.DirectorPort = 5555
	}
	if cfg.Network.DirectorIPAddr == "" {
		cfg.Network.DirectorIPAddr = "0.0.0.0"
	}
	if cfg.Workers.HeartbeatCheckIntervalMs == 0 {
		cfg.Workers.HeartbeatCheckIntervalMs = 5000
	}
	if cfg.Workers.ExpectedHeartbeatIntervalMs == 0 {
		cfg.Workers.ExpectedHeartbeatIntervalMs = 3000
	}
	if cfg.Workers.SynchronizationIntervalMs == 0 {
		cfg.Workers.SynchronizationIntervalMs = 10000
	}
	if cfg.Workers.WorkerSelectionStrategy == "" {
		cfg.Workers.WorkerSelectionStrategy = StrategyRoundRobin
	}
	if cfg.Workers.WorkerSelectionStrategy != StrategyRoundRobin && cfg.Workers.WorkerSelectionStrategy != StrategyRandom {
		return nil, faaserr.ConfigErrorErr("workers.worker_selection_strategy %q is not one of Round-Robin, Random", cfg.Workers.WorkerSelectionStrategy)
	}
	if cfg.Diagnostics.HTTPAddr == "" {
		cfg.Diagnostics.HTTPAddr = ":8090"
	}

	return cfg, nil
}

// LoadWorkerConfig reads and decodes a Worker TOML file, applying the
// defaults below for any zero-valued field.
func LoadWorkerConfig(path string) (*WorkerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faaserr.ConfigErrorErr("reading worker config %s: %v", path, err)
	}

	cfg := &WorkerConfig{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, faaserr.ConfigErrorErr("parsing worker config %s: %v", path, err)
	}

	if cfg.Network.DirectorPort == 0 {
		cfg.Network.DirectorPort = 5555
	}
	if cfg.Network.HeartbeatIntervalMs == 0 {
		cfg.Network.HeartbeatIntervalMs = 2000
	}
	if cfg.Behavior.Caching.Policy == "" {
		cfg.Behavior.Caching.Policy = "LRU"
	}
	if cfg.Behavior.Caching.Policy != "LRU" {
		return nil, faaserr.ConfigErrorErr("behavior.caching.policy %q is not supported (only LRU)", cfg.Behavior.Caching.Policy)
	}
	if cfg.Behavior.Caching.MaxSize < 0 {
		return nil, faaserr.ConfigErrorErr("behavior.caching.max_size must be >= 0, got %d", cfg.Behavior.Caching.MaxSize)
	}
	if cfg.Behavior.ShutdownPersistence && cfg.Behavior.DumpFile == "" {
		return nil, faaserr.ConfigErrorErr("behavior.dump_file is required when behavior.shutdown_persistence is true")
	}

	return cfg, nil
}

func (c *DirectorConfig) DirectorAddr() string {
	return fmt.Sprintf("tcp://%s:%d", c.Network.DirectorIPAddr, c.Network.DirectorPort)
}

func (c *WorkerConfig) DirectorAddr() string {
	return fmt.Sprintf("tcp://%s:%d", c.Network.DirectorIPAddr, c.Network.DirectorPort)
}
