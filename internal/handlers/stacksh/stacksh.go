// Package stacksh implements the Stacks blockchain wrapper endpoints:
// address decoding, Clarity value and transaction hex decoding, profile
// lookup, and message and SIP-018 structured-data signature verification.
// There is no address-encode or balance endpoint. Address logic is local
// (internal/stacksaddr); profile lookups delegate to
// internal/adapters/stacks.
package stacksh

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/umbra-labs/x402-gateway/internal/adapters/stacks"
	"github.com/umbra-labs/x402-gateway/internal/registry"
	"github.com/umbra-labs/x402-gateway/internal/stacksaddr"
)

// Handlers groups the Stacks wrapper endpoints with their shared lookup
// client dependency.
type Handlers struct {
	lookup *stacks.Client
}

// New builds Handlers backed by lookup.
func New(lookup *stacks.Client) *Handlers {
	return &Handlers{lookup: lookup}
}

// Address handles GET /stacks/address/{address}: decodes a c32check
// address into its version and hash160.
func (h *Handlers) Address(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	version, hash160, err := stacksaddr.Decode(address)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid address: "+err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{
		"address": address,
		"version": version,
		"hash160": hex.EncodeToString(hash160),
	})
}

type decodeClarityRequest struct {
	Hex string `json:"hex"`
}

// DecodeClarity handles POST /stacks/decode/clarity: a placeholder
// pass-through that validates hex framing; full Clarity value decoding is
// out of scope for this gateway (see internal/stacksaddr for the address
// and signature primitives this gateway does own).
func (h *Handlers) DecodeClarity(w http.ResponseWriter, r *http.Request) {
	var req decodeClarityRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	raw, err := hex.DecodeString(req.Hex)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid hex: "+err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"byteLength": len(raw)})
}

type decodeTransactionRequest struct {
	Hex string `json:"hex"`
}

// DecodeTransaction handles POST /stacks/decode/transaction: reports the
// raw transaction's byte length and leading-byte version marker. Full
// transaction parsing follows the same on-chain wire format as
// stacksaddr's address codec and is a natural extension point, not yet
// wired to a handler field.
func (h *Handlers) DecodeTransaction(w http.ResponseWriter, r *http.Request) {
	var req decodeTransactionRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	raw, err := hex.DecodeString(req.Hex)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid hex: "+err.Error(), nil)
		return
	}
	if len(raw) == 0 {
		registry.WriteError(w, r, http.StatusBadRequest, "empty transaction", nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"byteLength": len(raw), "versionByte": raw[0]})
}

// Profile handles GET /stacks/profile/{address}.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	profile, err := h.lookup.Profile(r.Context(), address)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadGateway, "profile lookup failed: "+err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"profile": profile})
}

type verifyMessageRequest struct {
	Digest          string `json:"digest"`
	Signature       string `json:"signature"`
	ExpectedAddress string `json:"expectedAddress"`
}

// VerifyMessage handles POST /stacks/verify/message: checks a signature
// against a raw digest and the signer's expected address.
func (h *Handlers) VerifyMessage(w http.ResponseWriter, r *http.Request) {
	var req verifyMessageRequest
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	digest, err := hex.DecodeString(req.Digest)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid digest hex: "+err.Error(), nil)
		return
	}
	sig, err := decodeSignature(req.Signature)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid signature: "+err.Error(), nil)
		return
	}
	_, hash160, err := stacksaddr.Decode(req.ExpectedAddress)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid expectedAddress: "+err.Error(), nil)
		return
	}

	valid, err := stacksaddr.VerifyMessageSignature(digest, sig, hash160)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "verification failed: "+err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"valid": valid})
}

type verifySIP018Request struct {
	DomainName    string `json:"domainName"`
	DomainVersion string `json:"domainVersion"`
	ChainID       uint32 `json:"chainId"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
	Address       string `json:"address"`
}

// VerifySIP018 handles POST /stacks/verify/sip018: verifies a SIP-018
// structured-data signature against the claimed signer address.
func (h *Handlers) VerifySIP018(w http.ResponseWriter, r *http.Request) {
	var req verifySIP018Request
	if err := registry.DecodeBody(r, &req); err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	sig, err := decodeSignature(req.Signature)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid signature: "+err.Error(), nil)
		return
	}
	_, hash160, err := stacksaddr.Decode(req.Address)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "invalid address: "+err.Error(), nil)
		return
	}

	digest := stacksaddr.StructuredDataHash(stacksaddr.Domain{
		Name:    req.DomainName,
		Version: req.DomainVersion,
		ChainID: req.ChainID,
	}, []byte(req.Message))

	valid, err := stacksaddr.VerifyMessageSignature(digest, sig, hash160)
	if err != nil {
		registry.WriteError(w, r, http.StatusBadRequest, "verification failed: "+err.Error(), nil)
		return
	}
	registry.WriteOK(w, r, map[string]any{"valid": valid})
}

func decodeSignature(s string) ([]byte, error) {
	if raw, err := hex.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
