// Package hashing implements POST /hashing/{algorithm}. Each algorithm's
// handler is produced by one factory, per spec.md §9's "Factory-returned
// handler classes become plain higher-order functions: a constructor
// makeHashHandler(algorithm, computeFn) -> Handler produces a closure."
package hashing

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/umbra-labs/x402-gateway/internal/hashutil"
	"github.com/umbra-labs/x402-gateway/internal/registry"
)

type request struct {
	Data     string `json:"data"`
	Encoding string `json:"encoding"`
}

// New returns the handler for algorithm, to be registered once per
// supported hash primitive.
func New(algorithm hashutil.Algorithm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := registry.DecodeBody(r, &req); err != nil {
			registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}

		data, encoding, err := decodeInput(req)
		if err != nil {
			registry.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}

		digest, err := hashutil.Compute(algorithm, data)
		if err != nil {
			registry.WriteError(w, r, http.StatusInternalServerError, err.Error(), nil)
			return
		}

		registry.WriteOK(w, r, map[string]any{
			"hash":        hex.EncodeToString(digest),
			"algorithm":   algorithm.DisplayName(),
			"encoding":    encoding,
			"inputLength": len(data),
		})
	}
}

// decodeInput resolves req's data under explicit encoding when given, else
// auto-detects hex via a leading "0x", falling back to UTF-8.
func decodeInput(req request) ([]byte, string, error) {
	encoding := req.Encoding
	if encoding == "" {
		if strings.HasPrefix(req.Data, "0x") {
			encoding = "hex"
		} else {
			encoding = "utf8"
		}
	}

	switch encoding {
	case "hex":
		s := strings.TrimPrefix(req.Data, "0x")
		data, err := hex.DecodeString(s)
		if err != nil {
			return nil, "", errInvalidEncoding("hex", err)
		}
		return data, encoding, nil
	case "base64":
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return nil, "", errInvalidEncoding("base64", err)
		}
		return data, encoding, nil
	default:
		return []byte(req.Data), "utf8", nil
	}
}

func errInvalidEncoding(encoding string, cause error) error {
	return &invalidEncodingError{encoding: encoding, cause: cause}
}

type invalidEncodingError struct {
	encoding string
	cause    error
}

func (e *invalidEncodingError) Error() string {
	return "invalid " + e.encoding + " input: " + e.cause.Error()
}

func (e *invalidEncodingError) Unwrap() error { return e.cause }
