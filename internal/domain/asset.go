package domain

import (
	"encoding/json"
	"time"
)

type AssetStatus string

const (
	AssetStatusPending          AssetStatus = "pending"
	AssetStatusApproved         AssetStatus = "approved"
	AssetStatusRejected         AssetStatus = "rejected"
	AssetStatusPaymentFailed    AssetStatus = "payment_failed"
	AssetStatusDeploymentFailed AssetStatus = "deployment_failed"
)

// Asset is a tokenized property. RemainingSupply is a denormalized read field;
// the completed-trade ledger stays authoritative and reconciliation repairs drift.
type Asset struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Location           string          `json:"location,omitempty"`
	TokenSymbol        string          `json:"token_symbol"`
	TokenPrice         float64         `json:"token_price"`
	TokenSupply        int64           `json:"token_supply"`
	RemainingSupply    int64           `json:"remaining_supply"`
	TokenAddress       string          `json:"token_address,omitempty"`
	AnnualRevenue      float64         `json:"annual_revenue,omitempty"`
	Status             AssetStatus     `json:"status"`
	CreatorAddress     string          `json:"creator_address"`
	OwnerAddress       string          `json:"owner_address"`
	PaymentConfirmed   bool            `json:"payment_confirmed"`
	PaymentTxHash      string          `json:"payment_tx_hash,omitempty"`
	PaymentConfirmedAt *time.Time      `json:"payment_confirmed_at,omitempty"`
	PaymentDetails     json.RawMessage `json:"payment_details,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Deployed reports whether the asset's token has been created on chain.
func (a *Asset) Deployed() bool {
	return a.TokenAddress != ""
}

// Tradable reports whether purchase trades may be opened against the asset.
func (a *Asset) Tradable() bool {
	return a.Status == AssetStatusApproved && a.Deployed()
}

// AssetStats are ledger-derived aggregates attached to real-time asset reads.
type AssetStats struct {
	TotalTrades    int64      `json:"total_trades"`
	TotalVolume    float64    `json:"total_volume"`
	TotalDividends float64    `json:"total_dividends"`
	LastTradeAt    *time.Time `json:"last_trade_at,omitempty"`
}

// AssetData is the cached real-time view of an asset.
type AssetData struct {
	Asset       Asset      `json:"asset"`
	Stats       AssetStats `json:"stats"`
	LastUpdated time.Time  `json:"last_updated"`
}
