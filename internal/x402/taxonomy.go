package x402

import "strings"

// ErrorKind is the closed taxonomy free-form relay error strings classify
// into, per spec.md §4.3's condition table.
type ErrorKind int

const (
	UnexpectedSettle ErrorKind = iota
	InsufficientFunds
	InvalidTransactionState
	AmountInsufficient
	InvalidPayload
	RecipientMismatch
	SenderMismatch
)

// Classification is the HTTP status and optional Retry-After seconds a
// classified error maps to. RetryAfter of 0 means no header is set.
type Classification struct {
	Kind       ErrorKind
	HTTPStatus int
	RetryAfter int
}

// classifyRule pairs a substring match against the relay's free-form error
// string with the fixed classification it produces. Rules are tried in
// order; the first match wins.
type classifyRule struct {
	substrings []string
	result     Classification
}

var classifyRules = []classifyRule{
	{[]string{"network", "timeout"}, Classification{UnexpectedSettle, 502, 5}},
	{[]string{"503", "unavailable"}, Classification{UnexpectedSettle, 503, 30}},
	{[]string{"insufficient", "balance"}, Classification{InsufficientFunds, 402, 0}},
	{[]string{"expired", "nonce"}, Classification{InvalidTransactionState, 402, 0}},
	{[]string{"amount low", "below minimum"}, Classification{AmountInsufficient, 402, 0}},
	{[]string{"invalid", "signature"}, Classification{InvalidPayload, 400, 0}},
	{[]string{"recipient mismatch"}, Classification{RecipientMismatch, 400, 0}},
	{[]string{"broadcast failure", "broadcast_failed"}, Classification{UnexpectedSettle, 502, 5}},
	{[]string{"tx failed"}, Classification{InvalidTransactionState, 402, 0}},
	{[]string{"tx pending"}, Classification{InvalidTransactionState, 402, 10}},
	{[]string{"sender mismatch"}, Classification{SenderMismatch, 400, 0}},
	{[]string{"unsupported scheme"}, Classification{InvalidPayload, 400, 0}},
}

// Classify maps a free-form relay error string into the fixed taxonomy.
// Classifying the same string twice always yields the same result
// (spec.md §8, "Payment taxonomy stability").
func Classify(errString string) Classification {
	lower := strings.ToLower(errString)
	for _, rule := range classifyRules {
		for _, s := range rule.substrings {
			if strings.Contains(lower, s) {
				return rule.result
			}
		}
	}
	return Classification{UnexpectedSettle, 500, 5}
}
