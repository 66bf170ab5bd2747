package x402

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-labs/x402-gateway/internal/config"
	"github.com/umbra-labs/x402-gateway/internal/pricing"
)

type stubFacilitator struct {
	result *SettlementResult
	err    error
}

func (s stubFacilitator) Settle(ctx context.Context, payload json.RawMessage, reqs []PaymentRequirement) (*SettlementResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testMiddleware(facilitator FacilitatorClient) *Middleware {
	return New(Config{
		Network:   config.Testnet,
		Recipient: "ST000TESTRECIPIENT",
		Relay:     facilitator,
	})
}

func passthroughHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestWrapFreeTierBypassesPayment(t *testing.T) {
	called := false
	m := testMiddleware(stubFacilitator{})
	handler := m.Wrap(pricing.Fixed(pricing.Free), nil, passthroughHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/free", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWrapWithoutPaymentHeaderEmitsChallenge(t *testing.T) {
	called := false
	m := testMiddleware(stubFacilitator{})
	handler := m.Wrap(pricing.Fixed(pricing.Standard), nil, passthroughHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/paid", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.NotEmpty(t, rec.Header().Get("payment-required"))

	var challenge PaymentRequired
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	assert.Equal(t, ProtocolVersion, challenge.X402Version)
	assert.NotEmpty(t, challenge.Accepts)
}

func TestWrapInvalidTokenTypeIsRejected(t *testing.T) {
	m := testMiddleware(stubFacilitator{})
	handler := m.Wrap(pricing.Fixed(pricing.Standard), nil, passthroughHandler(new(bool)))

	req := httptest.NewRequest(http.MethodGet, "/paid?tokenType=NotAToken", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func requirementFromChallenge(t *testing.T, handler http.Handler, url string) PaymentRequirement {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var challenge PaymentRequired
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	require.NotEmpty(t, challenge.Accepts)
	return challenge.Accepts[0]
}

func encodedPayload(t *testing.T, accepted PaymentRequirement) string {
	t.Helper()
	payload := PaymentPayload{X402Version: ProtocolVersion, Accepted: accepted, Payload: json.RawMessage(`{"sig":"stub"}`)}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestWrapSettlesAndAttachesReceiptOnSuccess(t *testing.T) {
	called := false
	m := testMiddleware(stubFacilitator{})
	handler := m.Wrap(pricing.Fixed(pricing.Standard), nil, passthroughHandler(&called))

	accepted := requirementFromChallenge(t, handler, "/paid")

	m2 := testMiddleware(stubFacilitator{result: &SettlementResult{Success: true, Payer: "ST000PAYER", Transaction: "0xabc"}})
	handler2 := m2.Wrap(pricing.Fixed(pricing.Standard), nil, passthroughHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/paid", nil)
	req.Header.Set("payment-signature", encodedPayload(t, accepted))
	rec := httptest.NewRecorder()
	handler2.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("payment-response"))
	assert.NotEmpty(t, rec.Header().Get("X-PAYMENT-RESPONSE"))
	assert.Equal(t, "ST000PAYER", rec.Header().Get("payment-payer"))
}

func TestWrapSettlementFailureIsClassified(t *testing.T) {
	m := testMiddleware(stubFacilitator{})
	handler := m.Wrap(pricing.Fixed(pricing.Standard), nil, passthroughHandler(new(bool)))
	accepted := requirementFromChallenge(t, handler, "/paid")

	m2 := testMiddleware(stubFacilitator{result: &SettlementResult{Success: false, ErrorReason: "insufficient balance"}})
	handler2 := m2.Wrap(pricing.Fixed(pricing.Standard), nil, passthroughHandler(new(bool)))

	req := httptest.NewRequest(http.MethodGet, "/paid", nil)
	req.Header.Set("payment-signature", encodedPayload(t, accepted))
	rec := httptest.NewRecorder()
	handler2.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InsufficientFunds", body["taxonomy"])
}

func TestWrapRejectsMismatchedAcceptedRequirement(t *testing.T) {
	m := testMiddleware(stubFacilitator{result: &SettlementResult{Success: true, Payer: "ST000PAYER"}})
	handler := m.Wrap(pricing.Fixed(pricing.Standard), nil, passthroughHandler(new(bool)))

	bogus := PaymentRequirement{Network: "stacks:999", Asset: "bogus", PayTo: "ST_NOBODY"}
	req := httptest.NewRequest(http.MethodGet, "/paid", nil)
	req.Header.Set("payment-signature", encodedPayload(t, bogus))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWrapDynamicTierRejectsStreamingRequest(t *testing.T) {
	m := testMiddleware(stubFacilitator{})
	handler := m.Wrap(pricing.DynamicSpec("chat-completion"), nil, passthroughHandler(new(bool)))

	body, _ := json.Marshal(pricing.ChatRequest{Model: "openrouter/auto", Stream: true})
	req := httptest.NewRequest(http.MethodPost, "/inference/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
