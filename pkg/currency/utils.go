package currency

import (
	"fmt"
	"math"
)

type CurrencyUtils struct{}

func NewCurrencyUtils() *CurrencyUtils {
	return &CurrencyUtils{}
}

// BankersRound rounds a USD value to cents, rounding exact halves to even.
func (u *CurrencyUtils) BankersRound(value float64) int64 {
	cents := value * 100
	rounded := math.Round(cents)

	if math.Abs(cents-rounded) == 0.5 {
		if int64(rounded)%2 == 0 {
			return int64(rounded)
		}
		return int64(rounded) - 1
	}

	return int64(math.Round(cents))
}

// RoundAmount normalizes a payment amount to 6 decimal places, the precision
// of USDC token units.
func (u *CurrencyUtils) RoundAmount(amount float64) float64 {
	return math.Round(amount*1e6) / 1e6
}

// ToTokenUnits converts a human amount to base units for the given decimals.
func (u *CurrencyUtils) ToTokenUnits(amount float64, decimals int) uint64 {
	return uint64(math.Round(amount * math.Pow10(decimals)))
}

// FromTokenUnits converts base units back to a human amount.
func (u *CurrencyUtils) FromTokenUnits(units uint64, decimals int) float64 {
	return float64(units) / math.Pow10(decimals)
}

// CentsToDollars converts cents to dollars for display.
func (u *CurrencyUtils) CentsToDollars(cents int64) float64 {
	return float64(cents) / 100.0
}

// FormatUSD formats cents as a USD string.
func (u *CurrencyUtils) FormatUSD(cents int64) string {
	return fmt.Sprintf("$%.2f", u.CentsToDollars(cents))
}
