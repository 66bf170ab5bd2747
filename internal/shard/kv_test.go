package shard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVSetReportsCreatedOnlyOnInsert(t *testing.T) {
	sh := newTestShard(t)

	created, err := sh.KVSet("a", "1", KVSetOptions{})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = sh.KVSet("a", "2", KVSetOptions{})
	require.NoError(t, err)
	assert.False(t, created)

	entry, err := sh.KVGet("a")
	require.NoError(t, err)
	assert.Equal(t, "2", entry.Value)
}

func TestKVGetMissingReturnsNotFound(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.KVGet("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVExpiredEntryIsLazilyRemoved(t *testing.T) {
	sh := newTestShard(t)
	ttl := -1 * time.Second // already expired
	_, err := sh.KVSet("expiring", "v", KVSetOptions{TTL: &ttl})
	require.NoError(t, err)

	_, err = sh.KVGet("expiring")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVListFiltersByPrefixAndCapsLimit(t *testing.T) {
	sh := newTestShard(t)
	for _, key := range []string{"user:1", "user:2", "order:1"} {
		_, err := sh.KVSet(key, "v", KVSetOptions{})
		require.NoError(t, err)
	}

	entries, err := sh.KVList(KVListOptions{Prefix: "user:"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = sh.KVList(KVListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestKVDeleteReportsWhetherRowExisted(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.KVSet("k", "v", KVSetOptions{})
	require.NoError(t, err)

	deleted, err := sh.KVDelete("k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = sh.KVDelete("k")
	require.NoError(t, err)
	assert.False(t, deleted)
}
