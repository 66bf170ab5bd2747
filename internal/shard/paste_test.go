package shard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasteCreateReturnsEightCharID(t *testing.T) {
	sh := newTestShard(t)
	id, err := sh.PasteCreate("hello", PasteCreateOptions{})
	require.NoError(t, err)
	assert.Len(t, id, 8)
}

func TestPasteIsImmutableAfterCreate(t *testing.T) {
	sh := newTestShard(t)
	id, err := sh.PasteCreate("content", PasteCreateOptions{Title: "t", Language: "go"})
	require.NoError(t, err)

	got, err := sh.PasteGet(id)
	require.NoError(t, err)
	assert.Equal(t, "content", got.Content)
	assert.Equal(t, "t", got.Title)
}

func TestPasteExpiresAfterTTL(t *testing.T) {
	sh := newTestShard(t)
	ttl := -1 * time.Second
	id, err := sh.PasteCreate("gone soon", PasteCreateOptions{TTL: &ttl})
	require.NoError(t, err)

	_, err = sh.PasteGet(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPasteDeleteReportsExistence(t *testing.T) {
	sh := newTestShard(t)
	id, err := sh.PasteCreate("x", PasteCreateOptions{})
	require.NoError(t, err)

	deleted, err := sh.PasteDelete(id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = sh.PasteDelete(id)
	require.NoError(t, err)
	assert.False(t, deleted)
}
