package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShard(t *testing.T) *Shard {
	t.Helper()
	mgr := NewManager(t.TempDir(), nil)
	sh, err := mgr.Get("SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKQVX8X0G")
	require.NoError(t, err)
	return sh
}

func TestManagerGetReturnsSameShardForSamePayer(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)
	a, err := mgr.Get("payer-1")
	require.NoError(t, err)
	b, err := mgr.Get("payer-1")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestManagerGetIsolatesDistinctPayers(t *testing.T) {
	mgr := NewManager(t.TempDir(), nil)
	a, err := mgr.Get("payer-1")
	require.NoError(t, err)
	b, err := mgr.Get("payer-2")
	require.NoError(t, err)

	_, err = a.KVSet("k", "from-a", KVSetOptions{})
	require.NoError(t, err)

	_, err = b.KVGet("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShardSchemaInitializedOnFirstUse(t *testing.T) {
	sh := newTestShard(t)
	tables, err := sh.Schema()
	require.NoError(t, err)

	names := make(map[string]bool, len(tables))
	for _, tbl := range tables {
		names[tbl.Name] = true
	}
	for _, want := range []string{"kv", "pastes", "locks", "queue_items", "vector_memory", "content_scans"} {
		assert.True(t, names[want], "expected table %q", want)
	}
}
