package workerproc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faasnet/faasnet/internal/protocol"
)

func TestStore_SaveAndRestore(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "dump.db"))
	require.NoError(t, err)
	defer store.Close()

	catalog := NewCatalog()
	catalog.Insert(Function{
		FuncID:            "func-1",
		Name:              "add",
		SerializedBase64:  "c2VyaWFsaXplZA==",
		Signature:         protocol.FuncSignature{Return: protocol.TypeInt},
		RegisteringClient: "client-a",
	})
	stats := NewStatsTable(true)
	stats.Record("add", 250*time.Millisecond)

	require.NoError(t, store.Save("worker-1", catalog, stats))

	restoredCatalog := NewCatalog()
	restoredStats := NewStatsTable(true)
	require.NoError(t, store.Restore("worker-1", restoredCatalog, restoredStats))

	fn, ok := restoredCatalog.Get("func-1")
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, "client-a", fn.RegisteringClient)
	assert.Equal(t, protocol.TypeInt, fn.Signature.Return)

	st, ok := restoredStats.Get("add")
	require.True(t, ok)
	assert.Equal(t, 1, st.Calls)
	assert.InDelta(t, 0.25, st.TotExecTime, 0.001)
}

func TestStore_SaveReplacesPriorSnapshot(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "dump.db"))
	require.NoError(t, err)
	defer store.Close()

	catalog := NewCatalog()
	catalog.Insert(Function{FuncID: "func-old", Name: "old"})
	require.NoError(t, store.Save("worker-1", catalog, NewStatsTable(true)))

	replacement := NewCatalog()
	replacement.Insert(Function{FuncID: "func-new", Name: "new"})
	require.NoError(t, store.Save("worker-1", replacement, NewStatsTable(true)))

	restored := NewCatalog()
	require.NoError(t, store.Restore("worker-1", restored, NewStatsTable(true)))
	assert.False(t, restored.Exists("func-old"))
	assert.True(t, restored.Exists("func-new"))
}

func TestStore_RestoreMissingSnapshotIsEmpty(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "dump.db"))
	require.NoError(t, err)
	defer store.Close()

	catalog := NewCatalog()
	require.NoError(t, store.Restore("worker-unknown", catalog, NewStatsTable(true)))
	assert.Empty(t, catalog.FuncIDs())
}
