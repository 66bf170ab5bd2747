package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/x402"
)

func noopHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRegisterPanicsOnDuplicateRoute(t *testing.T) {
	r := New()
	r.Register(Entry{Method: http.MethodGet, Path: "/a", Tier: pricing.Free, Handler: noopHandler})
	assert.Panics(t, func() {
		r.Register(Entry{Method: http.MethodGet, Path: "/a", Tier: pricing.Free, Handler: noopHandler})
	})
}

func TestRegisterAllowsSamePathDifferentMethod(t *testing.T) {
	r := New()
	r.Register(Entry{Method: http.MethodGet, Path: "/a", Tier: pricing.Free, Handler: noopHandler})
	assert.NotPanics(t, func() {
		r.Register(Entry{Method: http.MethodPost, Path: "/a", Tier: pricing.Free, Handler: noopHandler})
	})
}

func TestPricedExcludesFreeTier(t *testing.T) {
	r := New()
	r.Register(Entry{Method: http.MethodGet, Path: "/free", Tier: pricing.Free, Handler: noopHandler})
	r.Register(Entry{Method: http.MethodGet, Path: "/paid", Tier: pricing.Standard, Handler: noopHandler})

	priced := r.Priced()
	require.Len(t, priced, 1)
	assert.Equal(t, "/paid", priced[0].Path)
}

func TestEntrySpecReflectsTier(t *testing.T) {
	free := Entry{Tier: pricing.Free}
	assert.Equal(t, pricing.Fixed(pricing.Free), free.Spec())

	dyn := Entry{Tier: pricing.Dynamic, EstimatorID: "chat-completion"}
	assert.Equal(t, pricing.DynamicSpec("chat-completion"), dyn.Spec())
}

type stubFacilitator struct{}

func (stubFacilitator) Settle(ctx context.Context, payload json.RawMessage, reqs []x402.PaymentRequirement) (*x402.SettlementResult, error) {
	return &x402.SettlementResult{Success: true, Payer: "SP000TESTPAYER"}, nil
}

func TestMountWrapsNonFreeEntriesBehindPaymentMiddleware(t *testing.T) {
	reg := New()
	reg.Register(Entry{Method: http.MethodGet, Path: "/free", Tier: pricing.Free, Handler: noopHandler})
	reg.Register(Entry{Method: http.MethodGet, Path: "/paid", Tier: pricing.Standard, Category: "test", Handler: noopHandler})

	mw := x402.New(x402.Config{Recipient: "SP000TESTRECIPIENT", Relay: stubFacilitator{}})
	router := chi.NewRouter()
	reg.Mount(router, mw, nil)

	freeResp := httptest.NewRecorder()
	router.ServeHTTP(freeResp, httptest.NewRequest(http.MethodGet, "/free", nil))
	assert.Equal(t, http.StatusOK, freeResp.Code)

	paidResp := httptest.NewRecorder()
	router.ServeHTTP(paidResp, httptest.NewRequest(http.MethodGet, "/paid", nil))
	assert.Equal(t, http.StatusPaymentRequired, paidResp.Code)
}

type countingRecorder struct {
	calls []string
}

func (c *countingRecorder) Record(path, category, tokenType string, status int) {
	c.calls = append(c.calls, path)
}

func TestMountRecordsMetricsForFreeEntries(t *testing.T) {
	reg := New()
	reg.Register(Entry{Method: http.MethodGet, Path: "/free", Tier: pricing.Free, Handler: noopHandler})

	mw := x402.New(x402.Config{Recipient: "SP000TESTRECIPIENT", Relay: stubFacilitator{}})
	router := chi.NewRouter()
	rec := &countingRecorder{}
	reg.Mount(router, mw, rec)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/free", nil))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "/free", rec.calls[0])
}
