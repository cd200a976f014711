package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeTransitions(t *testing.T) {
	tests := []struct {
		from    TradeStatus
		to      TradeStatus
		allowed bool
	}{
		{TradeStatusPending, TradeStatusPendingPayment, true},
		{TradeStatusPending, TradeStatusCancelled, true},
		{TradeStatusPending, TradeStatusCompleted, false},
		{TradeStatusPendingPayment, TradeStatusPendingConfirmation, true},
		{TradeStatusPendingPayment, TradeStatusProcessing, true},
		{TradeStatusPendingPayment, TradeStatusExpired, true},
		{TradeStatusPendingConfirmation, TradeStatusCompleted, true},
		{TradeStatusPendingConfirmation, TradeStatusCancelled, false},
		{TradeStatusProcessing, TradeStatusCompleted, true},
		{TradeStatusProcessing, TradeStatusExpired, false},
		{TradeStatusCompleted, TradeStatusPending, false},
		{TradeStatusCompleted, TradeStatusFailed, false},
		{TradeStatusCancelled, TradeStatusPending, false},
		{TradeStatusFailed, TradeStatusPending, true},
		{TradeStatusExpired, TradeStatusPending, true},
		{TradeStatusFailed, TradeStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
			err := ValidateTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, TradeStatusCompleted.Terminal())
	assert.True(t, TradeStatusCancelled.Terminal())
	assert.False(t, TradeStatusFailed.Terminal())
	assert.False(t, TradeStatusExpired.Terminal())
	assert.False(t, TradeStatusPending.Terminal())
}

func TestDecodePaymentDetails(t *testing.T) {
	empty := &Trade{}
	pd, err := empty.DecodePaymentDetails()
	require.NoError(t, err)
	assert.Empty(t, pd.StatusHistory)

	doc := PaymentDetails{
		CurrentStatus: TradeStatusPendingPayment,
		StatusHistory: []StatusChange{{FromStatus: TradeStatusPending, ToStatus: TradeStatusPendingPayment}},
		Breakdown:     &CommissionBreakdown{SellerAmount: 965, PlatformFee: 35},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	trade := &Trade{PaymentDetails: raw}
	pd, err = trade.DecodePaymentDetails()
	require.NoError(t, err)
	assert.Equal(t, TradeStatusPendingPayment, pd.CurrentStatus)
	require.NotNil(t, pd.Breakdown)
	assert.InDelta(t, 965, pd.Breakdown.SellerAmount, 1e-9)

	bad := &Trade{PaymentDetails: json.RawMessage(`{not json`)}
	_, err = bad.DecodePaymentDetails()
	assert.Error(t, err)
}

func TestPaymentDetailsKeepsUnknownKeys(t *testing.T) {
	raw := []byte(`{
		"current_status": "pending_payment",
		"escrow_account": "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt",
		"legacy_fee_schedule": {"tier": 2},
		"last_updated": "2026-08-30T00:00:00Z"
	}`)

	trade := &Trade{PaymentDetails: raw}
	pd, err := trade.DecodePaymentDetails()
	require.NoError(t, err)
	assert.Equal(t, TradeStatusPendingPayment, pd.CurrentStatus)
	require.Contains(t, pd.Extra, "escrow_account")
	require.Contains(t, pd.Extra, "legacy_fee_schedule")

	// Rewriting the document, as a confirmation does, keeps the foreign keys.
	pd.StatusHistory = append(pd.StatusHistory, StatusChange{
		FromStatus: TradeStatusPendingPayment,
		ToStatus:   TradeStatusCompleted,
	})
	rewritten, err := json.Marshal(pd)
	require.NoError(t, err)

	decoded := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(rewritten, &decoded))
	assert.Contains(t, decoded, "escrow_account")
	assert.Contains(t, decoded, "legacy_fee_schedule")
	assert.Contains(t, decoded, "status_history")
}

func TestAssetTradable(t *testing.T) {
	a := &Asset{Status: AssetStatusApproved, TokenAddress: "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt"}
	assert.True(t, a.Tradable())

	undeployed := &Asset{Status: AssetStatusApproved}
	assert.False(t, undeployed.Tradable())

	pending := &Asset{Status: AssetStatusPending, TokenAddress: "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt"}
	assert.False(t, pending.Tradable())
}
