package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDirectorConfig_FullDocument(t *testing.T) {
	path := writeTOML(t, `
[network]
director_ip_addr = "10.0.0.1"
director_port = 6000

[workers]
heartbeat_check_interval_ms = 1000
expected_heartbeat_interval_ms = 500
synchronization_interval_ms = 2000
worker_selection_strategy = "Random"

[diagnostics]
http_addr = ":9000"
`)

	cfg, err := LoadDirectorConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.1:6000", cfg.DirectorAddr())
	assert.Equal(t, 1000, cfg.Workers.HeartbeatCheckIntervalMs)
	assert.Equal(t, 500, cfg.Workers.ExpectedHeartbeatIntervalMs)
	assert.Equal(t, StrategyRandom, cfg.Workers.WorkerSelectionStrategy)
	assert.Equal(t, ":9000", cfg.Diagnostics.HTTPAddr)
}

func TestLoadDirectorConfig_Defaults(t *testing.T) {
	cfg, err := LoadDirectorConfig(writeTOML(t, ``))
	require.NoError(t, err)
	assert.Equal(t, "tcp://0.0.0.0:5555", cfg.DirectorAddr())
	assert.Equal(t, StrategyRoundRobin, cfg.Workers.WorkerSelectionStrategy)
	assert.Positive(t, cfg.Workers.HeartbeatCheckIntervalMs)
	assert.Positive(t, cfg.Workers.SynchronizationIntervalMs)
}

func TestLoadDirectorConfig_BadStrategy(t *testing.T) {
	_, err := LoadDirectorConfig(writeTOML(t, `
[workers]
worker_selection_strategy = "Sticky"
`))
	assert.Error(t, err)
}

func TestLoadDirectorConfig_MissingFile(t *testing.T) {
	_, err := LoadDirectorConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadWorkerConfig_FullDocument(t *testing.T) {
	path := writeTOML(t, `
[network]
director_ip_addr = "10.0.0.1"
director_port = 6000
heartbeat_interval_ms = 1500

[behavior]
shutdown_persistence = true
dump_file = "state/worker.db"

[behavior.caching]
policy = "LRU"
max_size = 32

[statistics]
enabled = true
`)

	cfg, err := LoadWorkerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.1:6000", cfg.DirectorAddr())
	assert.Equal(t, 1500, cfg.Network.HeartbeatIntervalMs)
	assert.Equal(t, 32, cfg.Behavior.Caching.MaxSize)
	assert.True(t, cfg.Behavior.ShutdownPersistence)
	assert.True(t, cfg.Statistics.Enabled)
}

func TestLoadWorkerConfig_RejectsNonLRUPolicy(t *testing.T) {
	_, err := LoadWorkerConfig(writeTOML(t, `
[behavior.caching]
policy = "LFU"
`))
	assert.Error(t, err)
}

func TestLoadWorkerConfig_RejectsNegativeCacheSize(t *testing.T) {
	_, err := LoadWorkerConfig(writeTOML(t, `
[behavior.caching]
max_size = -1
`))
	assert.Error(t, err)
}

func TestLoadWorkerConfig_PersistenceNeedsDumpFile(t *testing.T) {
	_, err := LoadWorkerConfig(writeTOML(t, `
[behavior]
shutdown_persistence = true
`))
	assert.Error(t, err)
}

func TestLoadWorkerConfig_ZeroCacheSizeAllowed(t *testing.T) {
	cfg, err := LoadWorkerConfig(writeTOML(t, `
[behavior.caching]
max_size = 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Behavior.Caching.MaxSize)
}
