package stub

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/repositories/traderepo"
)

// AssetRepo implements assetrepo.IAssetRepository over a map.
type AssetRepo struct {
	mu     sync.Mutex
	nextID int64
	Assets map[int64]*domain.Asset

	// Dividends feeds SumConfirmedDividends.
	Dividends map[int64]float64
	// LockedReads counts GetByIDForUpdate calls.
	LockedReads int
	// Err, when set, is returned by every method.
	Err error
}

func NewAssetRepo() *AssetRepo {
	return &AssetRepo{
		nextID:    1,
		Assets:    make(map[int64]*domain.Asset),
		Dividends: make(map[int64]float64),
	}
}

// Put stores an asset, assigning an ID when it has none, and returns it.
func (r *AssetRepo) Put(a *domain.Asset) *domain.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == 0 {
		a.ID = r.nextID
		r.nextID++
	} else if a.ID >= r.nextID {
		r.nextID = a.ID + 1
	}
	r.Assets[a.ID] = a
	return a
}

func (r *AssetRepo) Create(_ context.Context, asset *domain.Asset) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	return r.Put(asset).ID, nil
}

func (r *AssetRepo) GetByID(_ context.Context, id int64) (*domain.Asset, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Assets[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *AssetRepo) ListDeployed(_ context.Context) ([]domain.Asset, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Asset
	for _, a := range r.Assets {
		if a.Deployed() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *AssetRepo) UpdateStatus(_ context.Context, id int64, status domain.AssetStatus) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Assets[id]
	if !ok {
		return fmt.Errorf("stub: asset %d not found", id)
	}
	a.Status = status
	return nil
}

func (r *AssetRepo) UpdateRemainingSupply(_ context.Context, id int64, remaining int64) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Assets[id]
	if !ok {
		return fmt.Errorf("stub: asset %d not found", id)
	}
	a.RemainingSupply = remaining
	return nil
}

func (r *AssetRepo) ConfirmPayment(_ context.Context, id int64, txHash string, details []byte) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Assets[id]
	if !ok {
		return fmt.Errorf("stub: asset %d not found", id)
	}
	now := time.Now().UTC()
	a.PaymentConfirmed = true
	a.PaymentTxHash = txHash
	a.PaymentConfirmedAt = &now
	a.PaymentDetails = details
	return nil
}

func (r *AssetRepo) SumConfirmedDividends(_ context.Context, assetID int64) (float64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Dividends[assetID], nil
}

func (r *AssetRepo) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return txSource().BeginTx(ctx, nil)
}

func (r *AssetRepo) GetByIDForUpdate(ctx context.Context, _ *sql.Tx, id int64) (*domain.Asset, error) {
	r.mu.Lock()
	r.LockedReads++
	r.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *AssetRepo) UpdateRemainingSupplyTx(ctx context.Context, _ *sql.Tx, id int64, remaining int64) error {
	return r.UpdateRemainingSupply(ctx, id, remaining)
}

// TradeRepo implements traderepo.ITradeRepository over maps.
type TradeRepo struct {
	mu     sync.Mutex
	nextID int64
	Trades map[int64]*domain.Trade
	// Holdings is user address -> asset ID -> quantity.
	Holdings map[string]map[int64]int64
	Err      error
}

func NewTradeRepo() *TradeRepo {
	return &TradeRepo{
		nextID:   1,
		Trades:   make(map[int64]*domain.Trade),
		Holdings: make(map[string]map[int64]int64),
	}
}

func (r *TradeRepo) Put(t *domain.Trade) *domain.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	} else if t.ID >= r.nextID {
		r.nextID = t.ID + 1
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.Trades[t.ID] = t
	return t
}

func (r *TradeRepo) Create(_ context.Context, trade *domain.Trade) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	if trade.Status == "" {
		trade.Status = domain.TradeStatusPending
	}
	return r.Put(trade).ID, nil
}

func (r *TradeRepo) GetByID(_ context.Context, id int64) (*domain.Trade, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.Trades[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *TradeRepo) UpdateStatus(_ context.Context, id int64, update traderepo.StatusUpdate) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyUpdate(id, update)
}

func (r *TradeRepo) applyUpdate(id int64, update traderepo.StatusUpdate) error {
	t, ok := r.Trades[id]
	if !ok {
		return fmt.Errorf("stub: trade %d not found", id)
	}
	t.Status = update.Status
	if update.TxHash != nil {
		t.TxHash = *update.TxHash
	}
	if update.ErrorMessage != nil {
		t.ErrorMessage = *update.ErrorMessage
	}
	if update.PaymentDetails != nil {
		t.PaymentDetails = update.PaymentDetails
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TradeRepo) ListByStatusWithHash(_ context.Context, statuses []domain.TradeStatus, limit int, afterID int64) ([]domain.Trade, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Trade
	for _, t := range r.Trades {
		if t.TxHash != "" && statusIn(t.Status, statuses) && t.ID > afterID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *TradeRepo) ListStuck(_ context.Context, statuses []domain.TradeStatus, cutoff time.Time) ([]domain.Trade, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Trade
	for _, t := range r.Trades {
		if t.TxHash != "" && statusIn(t.Status, statuses) && t.CreatedAt.Before(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *TradeRepo) CompletedAmounts(_ context.Context, assetID int64) (int64, int64, error) {
	if r.Err != nil {
		return 0, 0, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedAmounts(assetID)
}

func (r *TradeRepo) completedAmounts(assetID int64) (int64, int64, error) {
	var bought, sold int64
	for _, t := range r.Trades {
		if t.Status != domain.TradeStatusCompleted || t.AssetID == nil || *t.AssetID != assetID {
			continue
		}
		switch t.Type {
		case domain.TradeTypeBuy:
			bought += t.Amount
		case domain.TradeTypeSell:
			sold += t.Amount
		}
	}
	return bought, sold, nil
}

func (r *TradeRepo) Stats(_ context.Context, assetID int64) (*domain.AssetStats, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.AssetStats{}
	for _, t := range r.Trades {
		if t.Status != domain.TradeStatusCompleted || t.AssetID == nil || *t.AssetID != assetID {
			continue
		}
		stats.TotalTrades++
		stats.TotalVolume += t.Total
		created := t.CreatedAt
		if stats.LastTradeAt == nil || created.After(*stats.LastTradeAt) {
			stats.LastTradeAt = &created
		}
	}
	return stats, nil
}

func (r *TradeRepo) CountByStatus(_ context.Context, status domain.TradeStatus) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.Trades {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *TradeRepo) BeginTx(ctx context.Context) (*sql.Tx, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return txSource().BeginTx(ctx, nil)
}

func (r *TradeRepo) GetByIDForUpdate(ctx context.Context, _ *sql.Tx, id int64) (*domain.Trade, error) {
	return r.GetByID(ctx, id)
}

func (r *TradeRepo) UpdateStatusTx(_ context.Context, _ *sql.Tx, id int64, update traderepo.StatusUpdate) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyUpdate(id, update)
}

func (r *TradeRepo) CompletedAmountsTx(_ context.Context, _ *sql.Tx, assetID int64) (int64, int64, error) {
	if r.Err != nil {
		return 0, 0, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedAmounts(assetID)
}

func (r *TradeRepo) UpsertHoldingTx(_ context.Context, _ *sql.Tx, userAddress string, assetID, delta int64) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Holdings[userAddress] == nil {
		r.Holdings[userAddress] = make(map[int64]int64)
	}
	r.Holdings[userAddress][assetID] += delta
	return nil
}

func (r *TradeRepo) SubtractHolding(_ context.Context, userAddress string, assetID, amount int64) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Holdings[userAddress] == nil {
		return nil
	}
	r.Holdings[userAddress][assetID] -= amount
	if r.Holdings[userAddress][assetID] <= 0 {
		delete(r.Holdings[userAddress], assetID)
	}
	return nil
}

func statusIn(s domain.TradeStatus, set []domain.TradeStatus) bool {
	for _, c := range set {
		if c == s {
			return true
		}
	}
	return false
}

// CommissionRepo implements commissionrepo.ICommissionRepository over a slice.
type CommissionRepo struct {
	mu      sync.Mutex
	nextID  int64
	Records []domain.CommissionRecord
	Err     error
}

func NewCommissionRepo() *CommissionRepo {
	return &CommissionRepo{nextID: 1}
}

func (r *CommissionRepo) CreateBatch(_ context.Context, records []domain.CommissionRecord) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		rec.ID = r.nextID
		r.nextID++
		r.Records = append(r.Records, rec)
	}
	return nil
}

func (r *CommissionRepo) ListByTradeID(_ context.Context, tradeID int64) ([]domain.CommissionRecord, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CommissionRecord
	for _, rec := range r.Records {
		if rec.TradeID == tradeID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *CommissionRepo) DeleteByTradeID(_ context.Context, tradeID int64) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.CommissionRecord
	var deleted int64
	for _, rec := range r.Records {
		if rec.TradeID == tradeID {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.Records = kept
	return deleted, nil
}

// ReferralRepo implements referralrepo.IReferralRepository over a parent map.
type ReferralRepo struct {
	// Parents maps user address -> referrer address.
	Parents map[string]string
	Err     error
}

func NewReferralRepo() *ReferralRepo {
	return &ReferralRepo{Parents: make(map[string]string)}
}

func (r *ReferralRepo) GetReferrer(_ context.Context, userAddress string) (*domain.UserReferral, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	parent, ok := r.Parents[userAddress]
	if !ok {
		return nil, nil
	}
	return &domain.UserReferral{
		UserAddress:     userAddress,
		ReferrerAddress: parent,
		Status:          "active",
	}, nil
}

// PaymentRepo implements paymentrepo.IPaymentRepository over a map.
type PaymentRepo struct {
	mu       sync.Mutex
	nextID   int64
	Payments map[int64]*domain.PendingPayment
	Err      error
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{nextID: 1, Payments: make(map[int64]*domain.PendingPayment)}
}

func (r *PaymentRepo) Create(_ context.Context, payment *domain.PendingPayment) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	payment.ID = r.nextID
	r.nextID++
	payment.CreatedAt = time.Now().UTC()
	r.Payments[payment.ID] = payment
	return payment.ID, nil
}

func (r *PaymentRepo) GetByID(_ context.Context, id int64) (*domain.PendingPayment, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *PaymentRepo) List(_ context.Context, status domain.PaymentStatus, limit, offset int) ([]domain.PendingPayment, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PendingPayment
	for _, p := range r.Payments {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *PaymentRepo) UpdateStatus(_ context.Context, id int64, status domain.PaymentStatus, processedBy, txHash string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	now := time.Now().UTC()
	p.Status = status
	p.ProcessedBy = processedBy
	p.TxHash = txHash
	p.ProcessedAt = &now
	p.UpdatedAt = now
	return nil
}
