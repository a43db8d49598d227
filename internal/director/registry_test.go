package director

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLiveIDs(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	r.Register("worker-b", now)
	r.Register("worker-a", now)

	assert.True(t, r.IsLive("worker-a"))
	assert.False(t, r.IsLive("worker-c"))
	assert.Equal(t, []string{"worker-a", "worker-b"}, r.LiveIDs(), "ids are sorted for deterministic selection")
}

func TestRegistry_HeartbeatUnknownWorkerIgnored(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Heartbeat("worker-ghost", time.Now()), "a heartbeat must not re-register an evicted worker")
}

func TestRegistry_StaleDetection(t *testing.T) {
	r := NewRegistry()
	base := time.Now()

	r.Register("worker-old", base.Add(-time.Minute))
	r.Register("worker-fresh", base.Add(-time.Minute))
	require.True(t, r.Heartbeat("worker-fresh", base))

	cutoff := base.Add(-10 * time.Second)
	stale := r.Stale(cutoff, cutoff)
	assert.Equal(t, []string{"worker-old"}, stale)
}

func TestRegistry_GraceWindowSuppressesEviction(t *testing.T) {
	r := NewRegistry()
	base := time.Now()

	// Registered moments ago: its heartbeat is "old" relative to cutoff
	// only because it never got a chance to send one.
	r.Register("worker-new", base)

	cutoff := base.Add(time.Second)
	graceCutoff := base.Add(-time.Second)
	assert.Empty(t, r.Stale(cutoff, graceCutoff))
}

func TestRegistry_EvictRemoves(t *testing.T) {
	r := NewRegistry()
	r.Register("worker-a", time.Now())
	r.Evict("worker-a")
	assert.False(t, r.IsLive("worker-a"))
	assert.Empty(t, r.LiveIDs())
}
