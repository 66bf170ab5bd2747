package pricing

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// BigAmount wraps an arbitrary-precision atomic token amount so it always
// round-trips through JSON as a decimal string, never as a float.
type BigAmount struct {
	big.Int
}

// NewBigAmount wraps n.
func NewBigAmount(n *big.Int) BigAmount {
	if n == nil {
		return BigAmount{}
	}
	return BigAmount{Int: *n}
}

// MarshalJSON renders the amount as a quoted decimal string.
func (b BigAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Int.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number, always
// parsing as a base-10 integer.
func (b *BigAmount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("invalid atomic amount string: %q", s)
		}
		b.Int = *n
		return nil
	}
	var n big.Int
	if err := n.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid atomic amount: %w", err)
	}
	b.Int = n
	return nil
}
