package validation

import (
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
)

var tokenSymbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// IsValidSolanaAddress reports whether s is a base58-encoded 32-byte public key.
func IsValidSolanaAddress(s string) bool {
	if s == "" {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// IsValidTokenSymbol reports whether s matches the asset symbol format.
func IsValidTokenSymbol(s string) bool {
	return tokenSymbolPattern.MatchString(s)
}

// IsPlausibleTxHash applies the same superficial check the marketplace always
// has: non-empty, no whitespace, at least 32 characters. Real verification is
// the chain client's job.
func IsPlausibleTxHash(s string) bool {
	if len(s) < 32 {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n")
}

// IsPositiveAmount reports whether amount is a usable token quantity.
func IsPositiveAmount(amount int64) bool {
	return amount > 0
}
