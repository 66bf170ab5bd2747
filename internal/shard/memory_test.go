package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarityEdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestMemorySearchDropsBelowThresholdAndSortsDescending(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.MemoryStore([]MemoryItem{
		{ID: "a", Text: "match", Embedding: []float64{1, 0}},
		{ID: "b", Text: "orthogonal", Embedding: []float64{0, 1}},
		{ID: "c", Text: "close", Embedding: []float64{0.9, 0.1}},
	}))

	results, err := sh.MemorySearch([]float64{1, 0}, MemorySearchOptions{Limit: 10, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Item.ID)
	assert.Equal(t, "c", results[1].Item.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestMemoryStorePreservesCreatedAtAcrossUpsert(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.MemoryStore([]MemoryItem{{ID: "a", Text: "first", Embedding: []float64{1}}}))
	before, err := sh.MemoryList(10, 0)
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, sh.MemoryStore([]MemoryItem{{ID: "a", Text: "updated", Embedding: []float64{1}}}))
	after, err := sh.MemoryList(10, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)

	assert.Equal(t, before[0].CreatedAt, after[0].CreatedAt)
	assert.Equal(t, "updated", after[0].Text)
}

func TestMemoryStoreStampsUpdatedAtNotBeforeCreatedAt(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.MemoryStore([]MemoryItem{{ID: "a", Text: "first", Embedding: []float64{1}}}))

	items, err := sh.MemoryList(10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.GreaterOrEqual(t, items[0].UpdatedAt, items[0].CreatedAt)
}

func TestMemoryStoreRejectsEmptyEmbedding(t *testing.T) {
	sh := newTestShard(t)
	err := sh.MemoryStore([]MemoryItem{{ID: "a", Text: "x", Embedding: []float64{}}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMemoryDeleteOnlyReportsExistingIDs(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.MemoryStore([]MemoryItem{{ID: "a", Text: "x", Embedding: []float64{1}}}))

	deleted, err := sh.MemoryDelete([]string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deleted)
}
