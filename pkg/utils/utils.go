package utils

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

const dataURIScheme = "data:"

// FormatBaseUnits converts an integer amount in a chain's base unit into a
// decimal string in display units (wei -> ETH, microAlgo -> ALGO).
func FormatBaseUnits(amount *big.Int, decimals uint32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// FormatBaseUnitsUint is FormatBaseUnits for uint64 amounts.
func FormatBaseUnitsUint(amount uint64, decimals uint32) string {
	return FormatBaseUnits(new(big.Int).SetUint64(amount), decimals)
}

// DecodeImagePayload normalizes an editor image payload into raw bytes.
// Accepts a data URI (data:[<mediatype>][;base64],<data>), a bare base64
// string, or raw bytes passed through unchanged.
func DecodeImagePayload(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}

	s := string(payload)
	if strings.HasPrefix(s, dataURIScheme) {
		parts := strings.SplitN(strings.TrimPrefix(s, dataURIScheme), ",", 2)
		if len(parts) < 2 || len(parts[1]) == 0 {
			return nil, fmt.Errorf("no data part provided")
		}
		if strings.HasSuffix(parts[0], ";base64") {
			return base64.StdEncoding.DecodeString(parts[1])
		}
		return []byte(parts[1]), nil
	}

	// A payload that already sniffs as an image is raw bytes and passes
	// through untouched. Only non-image payloads are tried as bare base64:
	// an all-text value that decodes cleanly is treated as encoded, which
	// is the form editors hand over.
	if strings.HasPrefix(http.DetectContentType(payload), "image/") {
		return payload, nil
	}

	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}

	return payload, nil
}

// ShortAddress abbreviates a wallet address for logs: first and last six
// characters with an ellipsis between.
func ShortAddress(address string) string {
	if len(address) <= 14 {
		return address
	}
	return address[:6] + ".." + address[len(address)-6:]
}
