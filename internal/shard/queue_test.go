package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePopOrdersByPriorityThenFIFO(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.Push("jobs", []string{"low-1"}, QueuePushOptions{Priority: 0}))
	require.NoError(t, sh.Push("jobs", []string{"high-1"}, QueuePushOptions{Priority: 5}))
	require.NoError(t, sh.Push("jobs", []string{"low-2"}, QueuePushOptions{Priority: 0}))

	items, err := sh.Pop("jobs", 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "high-1", items[0].Payload)
	assert.Equal(t, "low-1", items[1].Payload)
	assert.Equal(t, "low-2", items[2].Payload)
}

func TestQueuePopRemovesItemsFromPending(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.Push("jobs", []string{"a"}, QueuePushOptions{}))

	_, err := sh.Pop("jobs", 10)
	require.NoError(t, err)

	status, err := sh.QueueStatus("jobs")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Pending)
	assert.Equal(t, 1, status.Processing)
}

func TestQueuePeekIsNonDestructive(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.Push("jobs", []string{"a"}, QueuePushOptions{}))

	items, err := sh.Peek("jobs", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	status, err := sh.QueueStatus("jobs")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending)
}

func TestQueueClearByStatus(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.Push("jobs", []string{"a", "b"}, QueuePushOptions{}))
	_, err := sh.Pop("jobs", 1)
	require.NoError(t, err)

	n, err := sh.Clear("jobs", "pending")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	status, err := sh.QueueStatus("jobs")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Pending)
	assert.Equal(t, 1, status.Processing)
}

func TestQueueStuckProcessingItemsReturnToPending(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.Push("jobs", []string{"a"}, QueuePushOptions{}))
	_, err := sh.Pop("jobs", 1)
	require.NoError(t, err)

	_, err = sh.db.Exec(`UPDATE queue_items SET visible_at = 0 WHERE queue = ?`, "jobs")
	require.NoError(t, err)

	status, err := sh.QueueStatus("jobs")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Pending)
	assert.Equal(t, 0, status.Processing)
}
