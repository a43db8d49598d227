package director

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSyncPlan_AlreadyEqual(t *testing.T) {
	plan := computeSyncPlan(map[string][]string{
		"worker-a": {"f1", "f2"},
		"worker-b": {"f2", "f1"},
	})

	assert.Equal(t, []string{"f1", "f2"}, plan.All)
	assert.Empty(t, plan.Missing["worker-a"])
	assert.Empty(t, plan.Missing["worker-b"])
}

func TestComputeSyncPlan_MissingSets(t *testing.T) {
	plan := computeSyncPlan(map[string][]string{
		"worker-a": {"f1"},
		"worker-b": {"f2", "f3"},
		"worker-c": nil,
	})

	assert.Equal(t, []string{"f1", "f2", "f3"}, plan.All)
	assert.Equal(t, []string{"f2", "f3"}, plan.Missing["worker-a"])
	assert.Equal(t, []string{"f1"}, plan.Missing["worker-b"])
	assert.Equal(t, []string{"f1", "f2", "f3"}, plan.Missing["worker-c"])
}

func TestComputeSyncPlan_OwnersSorted(t *testing.T) {
	plan := computeSyncPlan(map[string][]string{
		"worker-b": {"f1"},
		"worker-a": {"f1"},
	})

	require.Contains(t, plan.Owners, "f1")
	assert.Equal(t, []string{"worker-a", "worker-b"}, plan.Owners["f1"])
}

func TestComputeSyncPlan_EmptyCluster(t *testing.T) {
	plan := computeSyncPlan(map[string][]string{})
	assert.Empty(t, plan.All)
	assert.Empty(t, plan.Missing)
	assert.Empty(t, plan.Owners)
}
