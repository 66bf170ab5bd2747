package shard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireIsExclusive(t *testing.T) {
	sh := newTestShard(t)

	first, err := sh.Lock("migration", 60*time.Second)
	require.NoError(t, err)
	assert.True(t, first.Acquired)
	assert.Len(t, first.Token, 32)

	second, err := sh.Lock("migration", 60*time.Second)
	require.NoError(t, err)
	assert.False(t, second.Acquired)
}

func TestLockTTLIsClamped(t *testing.T) {
	sh := newTestShard(t)
	res, err := sh.Lock("too-short", 1*time.Second)
	require.NoError(t, err)
	assert.InDelta(t, float64(time.Now().Unix())+lockMinTTL.Seconds(), float64(res.ExpiresAt), 2)
}

func TestUnlockRequiresMatchingToken(t *testing.T) {
	sh := newTestShard(t)
	res, err := sh.Lock("job", 60*time.Second)
	require.NoError(t, err)

	err = sh.Unlock("job", "wrong-token")
	assert.ErrorIs(t, err, ErrTokenMismatch)

	err = sh.Unlock("job", res.Token)
	assert.NoError(t, err)

	status, err := sh.Status("job")
	require.NoError(t, err)
	assert.False(t, status.Held)
}

func TestExtendRejectsExpiredLock(t *testing.T) {
	sh := newTestShard(t)
	res, err := sh.Lock("stale", 10*time.Second)
	require.NoError(t, err)

	_, err = sh.db.Exec(`UPDATE locks SET expires_at = 0 WHERE name = ?`, "stale")
	require.NoError(t, err)

	_, err = sh.Extend("stale", res.Token, 60*time.Second)
	assert.ErrorIs(t, err, ErrNotFound)
}
