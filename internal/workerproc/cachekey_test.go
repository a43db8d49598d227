package workerproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faasnet/faasnet/internal/faascache"
)

func TestBuildCacheKey_DefaultArgOrderIndependent(t *testing.T) {
	a := buildCacheKey("f1", []any{1, 2}, map[string]any{"x": 1, "y": 2, "z": 3})
	b := buildCacheKey("f1", []any{1, 2}, map[string]any{"z": 3, "y": 2, "x": 1})
	assert.Equal(t, a, b)
}

func TestBuildCacheKey_DistinguishesArguments(t *testing.T) {
	base := buildCacheKey("f1", []any{1, 2}, map[string]any{"c": 3})

	assert.NotEqual(t, base, buildCacheKey("f2", []any{1, 2}, map[string]any{"c": 3}))
	assert.NotEqual(t, base, buildCacheKey("f1", []any{2, 1}, map[string]any{"c": 3}))
	assert.NotEqual(t, base, buildCacheKey("f1", []any{1, 2}, map[string]any{"c": 4}))
	assert.NotEqual(t, base, buildCacheKey("f1", []any{1, 2}, nil))
}

func TestDecodeCacheDump_RecoversArguments(t *testing.T) {
	key := buildCacheKey("f1", []any{float64(12), float64(69)}, map[string]any{"c": float64(21)})
	rows := decodeCacheDump([]faascache.DumpEntry{{Key: key, Value: float64(102)}})

	require.Len(t, rows, 1)
	assert.Equal(t, "f1", rows[0].FuncID)
	assert.Equal(t, []any{float64(12), float64(69)}, rows[0].PositionalArgs)
	assert.Equal(t, map[string]any{"c": float64(21)}, rows[0].DefaultArgs)
	assert.Equal(t, float64(102), rows[0].Value)
}
