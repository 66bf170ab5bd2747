package modelcatalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls  atomic.Int64
	result map[string]RawModelPrice
	err    error
}

func (f *countingFetcher) FetchModelPrices(context.Context) (map[string]RawModelPrice, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestLookupEmptyCacheFallsBack(t *testing.T) {
	f := &countingFetcher{err: errors.New("upstream down")}
	c := New(f, nil)

	lookup := c.Lookup("any-model")
	assert.True(t, lookup.Valid)
	assert.Nil(t, lookup.Pricing)
}

func TestLookupPopulatesFromFetcher(t *testing.T) {
	f := &countingFetcher{result: map[string]RawModelPrice{
		"m1": {PromptPerK: 0.001, CompletionPerK: 0.002},
	}}
	c := New(f, nil)

	lookup := c.Lookup("m1")
	require.True(t, lookup.Valid)
	require.NotNil(t, lookup.Pricing)
	assert.True(t, lookup.Pricing.PromptPerK.Equal(lookup.Pricing.PromptPerK))
}

func TestLookupDropsNonFiniteOrNegativeEntries(t *testing.T) {
	f := &countingFetcher{result: map[string]RawModelPrice{
		"good": {PromptPerK: 0.001, CompletionPerK: 0.002},
		"bad":  {PromptPerK: -1, CompletionPerK: 0.002},
	}}
	c := New(f, nil)

	good := c.Lookup("good")
	assert.NotNil(t, good.Pricing)

	bad := c.Lookup("bad")
	assert.False(t, bad.Valid)
}

func TestConcurrentLookupsSingleFlightRefresh(t *testing.T) {
	f := &countingFetcher{result: map[string]RawModelPrice{
		"m1": {PromptPerK: 0.001, CompletionPerK: 0.002},
	}}
	c := New(f, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Lookup("m1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.calls.Load())
}
