package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidSolanaAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"system program", "11111111111111111111111111111111", true},
		{"usdc mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"empty", "", false},
		{"not base58", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", false},
		{"too short", "abc", false},
		{"wrong byte length", "2j", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidSolanaAddress(tt.address))
		})
	}
}

func TestIsValidTokenSymbol(t *testing.T) {
	assert.True(t, IsValidTokenSymbol("RWA1"))
	assert.True(t, IsValidTokenSymbol("BRICK9"))
	assert.False(t, IsValidTokenSymbol("a"))
	assert.False(t, IsValidTokenSymbol("lowercase"))
	assert.False(t, IsValidTokenSymbol("WAYTOOLONGSYMBOL"))
	assert.False(t, IsValidTokenSymbol(""))
}

func TestIsPlausibleTxHash(t *testing.T) {
	assert.True(t, IsPlausibleTxHash(strings.Repeat("5", 88)))
	assert.True(t, IsPlausibleTxHash(strings.Repeat("a", 32)))
	assert.False(t, IsPlausibleTxHash(strings.Repeat("a", 31)))
	assert.False(t, IsPlausibleTxHash(strings.Repeat("a", 20)+" "+strings.Repeat("a", 20)))
	assert.False(t, IsPlausibleTxHash(""))
}

func TestIsPositiveAmount(t *testing.T) {
	assert.True(t, IsPositiveAmount(1))
	assert.False(t, IsPositiveAmount(0))
	assert.False(t, IsPositiveAmount(-5))
}
