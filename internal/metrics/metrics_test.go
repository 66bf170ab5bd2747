package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIncrementsCounter(t *testing.T) {
	r := New()
	r.Record("/hashing/sha256", "hashing", "Native", 200)
	r.Record("/hashing/sha256", "hashing", "Native", 200)
	r.Record("/hashing/sha256", "hashing", "BridgedUSD", 200)

	assert.Equal(t, int64(2), r.Count("hashing", "Native"))
	assert.Equal(t, int64(1), r.Count("hashing", "BridgedUSD"))
	assert.Equal(t, int64(0), r.Count("hashing", "BridgedBTC"))
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	r := New()
	r.Record("/a", "cat", "Native", 200)
	r.Record("/b", "cat", "Native", 402)
	r.Record("/c", "cat", "Native", 500)

	recent := r.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "/c", recent[0].Path)
	assert.Equal(t, "/b", recent[1].Path)
	assert.Equal(t, "/a", recent[2].Path)
}

func TestRecentWrapsAroundRingCapacity(t *testing.T) {
	r := New()
	for i := 0; i < recentRingSize+10; i++ {
		r.Record("/x", "cat", "Native", 200)
	}
	recent := r.Recent(recentRingSize + 10)
	assert.Len(t, recent, recentRingSize)
}

func TestRecentNCapsResultSize(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		r.Record("/x", "cat", "Native", 200)
	}
	assert.Len(t, r.Recent(2), 2)
}
