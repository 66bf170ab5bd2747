package x402

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/umbra-labs/x402-gateway/internal/config"
	"github.com/umbra-labs/x402-gateway/internal/pricing"
	"github.com/umbra-labs/x402-gateway/internal/reqctx"
)

const (
	// paymentRequiredHeader carries the base64-JSON challenge on a 402.
	paymentRequiredHeader = "payment-required"
	// paymentSignatureHeader carries the client's base64-JSON signed payload.
	paymentSignatureHeader = "payment-signature"
	// paymentResponseHeader carries the base64-JSON settlement receipt.
	paymentResponseHeader = "payment-response"
	// payerHeader echoes the authoritative payer address.
	payerHeader = "payment-payer"
	// legacyPaymentHeader and legacyResponseHeader are accepted/emitted for
	// backward compatibility with earlier x402 drafts.
	legacyPaymentHeader  = "X-PAYMENT"
	legacyResponseHeader = "X-PAYMENT-RESPONSE"

	tokenTypeHeader = "payment-token-type"
	tokenTypeQuery  = "tokenType"
)

// FacilitatorClient is the settlement relay dependency. Implemented by
// internal/adapters/relay.HTTPClient.
type FacilitatorClient interface {
	Settle(ctx context.Context, payload json.RawMessage, requirements []PaymentRequirement) (*SettlementResult, error)
}

// EndpointMeta is the discovery-extension metadata attached to a challenge
// when the endpoint registry has schema information for this route.
type EndpointMeta struct {
	InputSchema  any
	OutputSchema any
	Examples     []any
}

// Config groups the Payment State Machine's dependencies.
type Config struct {
	Network   config.Network
	Recipient string
	Relay     FacilitatorClient
	Catalog   pricing.Catalog
	Logger    *slog.Logger
}

// Middleware is the per-request payment state machine described in
// spec.md §4.3. One Middleware serves every priced route; per-route pricing
// is supplied to Wrap.
type Middleware struct {
	cfg Config
}

// New builds a Middleware from cfg.
func New(cfg Config) *Middleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Middleware{cfg: cfg}
}

// Wrap gates next behind the payment state machine for spec, attaching
// meta's discovery-extension data to emitted challenges.
func (m *Middleware) Wrap(spec pricing.PriceSpec, meta *EndpointMeta, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := reqctx.Logger(ctx)

		tokenType, err := selectToken(r)
		if err != nil {
			writeValidationError(w, "", http.StatusBadRequest, err.Error())
			return
		}
		ctx = reqctx.WithTokenType(ctx, string(tokenType))

		var chatReq pricing.ChatRequest
		if spec.Tier == pricing.Dynamic {
			parsed, raw, err := decodeChatRequest(r)
			if err != nil {
				writeValidationError(w, string(tokenType), http.StatusBadRequest, "malformed request body: "+err.Error())
				return
			}
			chatReq = parsed
			ctx = reqctx.WithParsedBody(ctx, raw)
		}

		if spec.Tier == pricing.Free {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		requirements, estimateByToken, err := m.buildRequirements(ctx, spec, chatReq, meta)
		if err != nil {
			writeValidationError(w, string(tokenType), http.StatusBadRequest, err.Error())
			return
		}

		paymentHeader := r.Header.Get(paymentSignatureHeader)
		if paymentHeader == "" {
			paymentHeader = r.Header.Get(legacyPaymentHeader)
		}
		if paymentHeader == "" {
			m.sendChallenge(w, requirements)
			return
		}

		payload, err := decodePaymentPayload(paymentHeader)
		if err != nil {
			writeValidationError(w, string(tokenType), http.StatusBadRequest, "invalid payment payload: "+err.Error())
			return
		}
		if payload.X402Version != ProtocolVersion {
			writeValidationError(w, string(tokenType), http.StatusBadRequest, "unsupported x402Version")
			return
		}
		if !requirementAccepted(payload.Accepted, requirements) {
			writeValidationError(w, string(tokenType), http.StatusBadRequest, "accepted requirement not offered by this endpoint")
			return
		}

		result, err := m.cfg.Relay.Settle(ctx, payload.Payload, requirements)
		if err != nil {
			cls := Classify(err.Error())
			writeSettlementError(w, string(tokenType), cls, err.Error())
			return
		}
		if !result.Success {
			cls := Classify(result.ErrorReason)
			writeSettlementError(w, string(tokenType), cls, result.ErrorReason)
			return
		}
		if result.Payer == "" {
			logger.Error("settlement reported success with no payer", "transaction", result.Transaction)
			writeValidationError(w, string(tokenType), http.StatusInternalServerError, "settlement succeeded without payer identity")
			return
		}

		ctx = reqctx.WithPayer(ctx, result.Payer)
		if est, ok := estimateByToken[tokenType]; ok {
			ctx = reqctx.WithEstimate(ctx, est)
		}

		attachReceipt(w, result)

		logger.Info("payment settled", "payer", result.Payer, "token", tokenType, "transaction", result.Transaction)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// selectToken resolves the client's token choice from header or query,
// defaulting to Native.
func selectToken(r *http.Request) (pricing.TokenKind, error) {
	s := r.Header.Get(tokenTypeHeader)
	if s == "" {
		s = r.URL.Query().Get(tokenTypeQuery)
	}
	return pricing.ParseTokenKind(s)
}

// decodeChatRequest parses a dynamic endpoint's body exactly once, returning
// both the parsed struct and the raw bytes for downstream handler reuse.
func decodeChatRequest(r *http.Request) (pricing.ChatRequest, json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return pricing.ChatRequest{}, nil, err
	}
	var req pricing.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return pricing.ChatRequest{}, nil, err
	}
	if req.Stream {
		return pricing.ChatRequest{}, nil, fmt.Errorf("streaming is not supported in the paid path")
	}
	return req, raw, nil
}

// buildRequirements computes one PaymentRequirement per supported token
// (native always included; bridged tokens only when a contract exists for
// the configured network), alongside the estimate each was derived from.
func (m *Middleware) buildRequirements(ctx context.Context, spec pricing.PriceSpec, chatReq pricing.ChatRequest, meta *EndpointMeta) ([]PaymentRequirement, map[pricing.TokenKind]pricing.PriceEstimate, error) {
	requirements := make([]PaymentRequirement, 0, len(pricing.AllTokens))
	estimates := make(map[pricing.TokenKind]pricing.PriceEstimate, len(pricing.AllTokens))

	for _, token := range pricing.AllTokens {
		var asset string
		if token != pricing.Native {
			contract, ok := pricing.ContractFor(token, m.cfg.Network)
			if !ok {
				continue
			}
			asset = contract.Address + "." + contract.Name
		}

		var est pricing.PriceEstimate
		var err error
		if spec.Tier == pricing.Dynamic {
			est, err = pricing.Estimate(ctx, spec.EstimatorID, chatReq, token, m.cfg.Catalog)
		} else {
			est, err = pricing.FixedEstimate(spec.Tier, token)
		}
		if err != nil {
			return nil, nil, err
		}
		estimates[token] = est

		extra := tokenExtra(spec.Tier, est)
		if meta != nil {
			if meta.InputSchema != nil {
				extra["inputSchema"] = meta.InputSchema
			}
			if meta.OutputSchema != nil {
				extra["outputSchema"] = meta.OutputSchema
			}
			if len(meta.Examples) > 0 {
				extra["examples"] = meta.Examples
			}
		}

		requirements = append(requirements, PaymentRequirement{
			Scheme:            "exact",
			Network:           m.cfg.Network.ChainID(),
			Amount:            est.Amount.String(),
			Asset:             asset,
			PayTo:             m.cfg.Recipient,
			MaxTimeoutSeconds: spec.Tier.TimeoutSeconds(),
			Extra:             extra,
		})
	}

	return requirements, estimates, nil
}

func requirementAccepted(accepted PaymentRequirement, offered []PaymentRequirement) bool {
	for _, o := range offered {
		if o.Network == accepted.Network && o.Asset == accepted.Asset && o.PayTo == accepted.PayTo {
			return true
		}
	}
	return false
}

func decodePaymentPayload(encoded string) (*PaymentPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decoding: %w", err)
	}
	var p PaymentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("json decoding: %w", err)
	}
	return &p, nil
}

func (m *Middleware) sendChallenge(w http.ResponseWriter, requirements []PaymentRequirement) {
	// TODO: Resource.URL is left empty — sendChallenge has no access to the
	// request's resolved path here; thread it through from Wrap.
	body := PaymentRequired{
		X402Version: ProtocolVersion,
		Resource:    Resource{Description: "payment required"},
		Accepts:     requirements,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	w.Header().Set(paymentRequiredHeader, encoded)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_, _ = w.Write(payload)
}

func attachReceipt(w http.ResponseWriter, result *SettlementResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	w.Header().Set(paymentResponseHeader, encoded)
	w.Header().Set(legacyResponseHeader, encoded)
	w.Header().Set(payerHeader, result.Payer)
}

func writeValidationError(w http.ResponseWriter, tokenType string, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":        false,
		"tokenType": tokenType,
		"error":     msg,
	})
}

func writeSettlementError(w http.ResponseWriter, tokenType string, cls Classification, reason string) {
	if cls.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(cls.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(cls.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":        false,
		"tokenType": tokenType,
		"error":     reason,
		"taxonomy":  taxonomyName(cls.Kind),
	})
}

func taxonomyName(k ErrorKind) string {
	switch k {
	case InsufficientFunds:
		return "InsufficientFunds"
	case InvalidTransactionState:
		return "InvalidTransactionState"
	case AmountInsufficient:
		return "AmountInsufficient"
	case InvalidPayload:
		return "InvalidPayload"
	case RecipientMismatch:
		return "RecipientMismatch"
	case SenderMismatch:
		return "SenderMismatch"
	default:
		return "UnexpectedSettle"
	}
}
