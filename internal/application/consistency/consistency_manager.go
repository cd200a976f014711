package consistency

import (
	"context"
	"database/sql"
	"time"

	"github.com/brickmint/rws/internal/domain"
)

// IConsistencyManager keeps the denormalized Asset.remaining_supply aligned
// with the completed-trade ledger, which stays authoritative.
type IConsistencyManager interface {
	// UpdateAssetAfterTrade re-derives remaining supply after a trade completed,
	// in its own transaction with row locks on trade and asset.
	UpdateAssetAfterTrade(ctx context.Context, tradeID int64) error

	// ApplyTradeTx performs the same supply adjustment inside a caller-owned
	// transaction; the caller must already hold the trade row lock.
	ApplyTradeTx(ctx context.Context, tx *sql.Tx, trade *domain.Trade) error

	// AccurateRemainingSupply recomputes remaining supply from the ledger,
	// repairing the stored field when drift is found.
	AccurateRemainingSupply(ctx context.Context, assetID int64) (int64, error)

	// GetRealTimeAssetData serves the cached asset snapshot with trade stats.
	GetRealTimeAssetData(ctx context.Context, assetID int64) (*domain.AssetData, error)

	// ValidateAssetConsistency reports and repairs supply drift, and flags
	// pending trades whose hash is already confirmed on chain.
	ValidateAssetConsistency(ctx context.Context, assetID int64) (*Report, error)

	// InvalidateAssetCache drops the cached entry for the asset.
	InvalidateAssetCache(ctx context.Context, assetID int64)
}

// Issue is one inconsistency found during validation.
type Issue struct {
	Type            string             `json:"type"`
	TradeID         int64              `json:"trade_id,omitempty"`
	DatabaseValue   int64              `json:"database_value,omitempty"`
	CalculatedValue int64              `json:"calculated_value,omitempty"`
	CurrentStatus   domain.TradeStatus `json:"current_status,omitempty"`
	ShouldBe        domain.TradeStatus `json:"should_be,omitempty"`
	Fixed           bool               `json:"fixed"`
}

// Report is the outcome of ValidateAssetConsistency.
type Report struct {
	AssetID     int64     `json:"asset_id"`
	IssuesFound int       `json:"issues_found"`
	Issues      []Issue   `json:"issues"`
	ValidatedAt time.Time `json:"validated_at"`
}
