package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanStoreClampsConfidence(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.ScanStore("p1", ContentPaste, true, 5, "looks fine"))

	v, err := sh.ScanGet("p1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Confidence)
}

func TestScanListFiltersBySafeOnlyAndType(t *testing.T) {
	sh := newTestShard(t)
	require.NoError(t, sh.ScanStore("p1", ContentPaste, true, 0.9, "safe"))
	require.NoError(t, sh.ScanStore("p2", ContentPaste, false, 0.8, "flagged"))
	require.NoError(t, sh.ScanStore("k1", ContentKV, true, 0.5, "safe"))

	safePastes, err := sh.ScanList(ScanListOptions{ContentType: ContentPaste, SafeOnly: true})
	require.NoError(t, err)
	require.Len(t, safePastes, 1)
	assert.Equal(t, "p1", safePastes[0].ID)
}
