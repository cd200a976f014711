package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authservice "github.com/brickmint/rws/internal/application/auth"
	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/payments"
	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/application/syncservice"
	"github.com/brickmint/rws/internal/application/tradestatus"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/cache"
	"github.com/brickmint/rws/internal/repositories/stub"
	"github.com/brickmint/rws/internal/server/websocket"
	"github.com/brickmint/rws/pkg/config"
)

const (
	buyerAddr  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	sellerAddr = "So11111111111111111111111111111111111111112"
	goodHash   = "5VERYLONGPLAUSIBLETRANSACTIONHASH1234567890abcdef"
)

type testEnv struct {
	router  *gin.Engine
	assets  *stub.AssetRepo
	trades  *stub.TradeRepo
	pays    *stub.PaymentRepo
	authSvc authservice.IAuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.Settlement = config.SettlementConfig{
		PlatformFeeRate:    0.035,
		ReferralRate:       0.05,
		PlatformAddress:    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		PaymentCurrency:    "USDC",
		TransactionTimeout: 30 * time.Minute,
	}

	logger := zerolog.Nop()
	env := &testEnv{
		assets: stub.NewAssetRepo(),
		trades: stub.NewTradeRepo(),
		pays:   stub.NewPaymentRepo(),
	}
	commissions := stub.NewCommissionRepo()
	referrals := stub.NewReferralRepo()
	chain := stub.NewChainClient()

	cm := consistency.New(env.assets, env.trades, chain, cache.NewMemoryCache(), time.Minute, logger)
	rb := rollback.New(env.assets, env.trades, commissions, cm, logger)
	sm := tradestatus.New(env.trades, env.assets, commissions, cm, rb, nil, logger)
	ps := payments.New(env.assets, env.trades, commissions, referrals, env.pays, chain, cm, cfg.Settlement, logger)
	sync := syncservice.New(env.trades, env.assets, chain, sm, cm, rb, cfg.Settlement, logger)
	env.authSvc = authservice.NewAuthService(cfg, logger)

	h := New(ps, sm, cm, rb, sync, env.authSvc, env.pays, websocket.NewWsHub(logger), logger, cfg)
	env.router = gin.New()
	h.SetupHandlers(env.router)
	return env
}

func (e *testEnv) seedAsset() *domain.Asset {
	return e.assets.Put(&domain.Asset{
		Name:            "Harbor Tower",
		TokenSymbol:     "HTWR",
		TokenPrice:      100,
		TokenSupply:     1000,
		RemainingSupply: 1000,
		TokenAddress:    "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt",
		Status:          domain.AssetStatusApproved,
		OwnerAddress:    sellerAddr,
	})
}

func (e *testEnv) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready", nil, nil).Code)
}

func TestCreateTradeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	asset := env.seedAsset()

	// No wallet header: rejected before the handler runs.
	w := env.do(http.MethodPost, "/api/v2/trades/create", gin.H{"asset_id": asset.ID, "amount": 10}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed wallet header.
	w = env.do(http.MethodPost, "/api/v2/trades/create", gin.H{"asset_id": asset.ID, "amount": 10},
		map[string]string{"X-Wallet-Address": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/v2/trades/create", gin.H{"asset_id": asset.ID, "amount": 10},
		map[string]string{"X-Wallet-Address": buyerAddr})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var instr payments.PaymentInstructions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &instr))
	assert.NotZero(t, instr.TradeID)
	assert.InDelta(t, 1000, instr.Total, 1e-9)
	assert.NotEmpty(t, instr.Transfers)

	// Unknown asset maps to 404.
	w = env.do(http.MethodPost, "/api/v2/trades/create", gin.H{"asset_id": asset.ID + 99, "amount": 10},
		map[string]string{"X-Wallet-Address": buyerAddr})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Oversized order maps to 400.
	w = env.do(http.MethodPost, "/api/v2/trades/create", gin.H{"asset_id": asset.ID, "amount": 99999},
		map[string]string{"X-Wallet-Address": buyerAddr})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmAndStatusEndpoints(t *testing.T) {
	env := newTestEnv(t)
	asset := env.seedAsset()

	w := env.do(http.MethodPost, "/api/v2/trades/create", gin.H{"asset_id": asset.ID, "amount": 10},
		map[string]string{"X-Wallet-Address": buyerAddr})
	require.Equal(t, http.StatusCreated, w.Code)
	var instr payments.PaymentInstructions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &instr))

	w = env.do(http.MethodPost, "/api/v2/trades/confirm", gin.H{"trade_id": instr.TradeID, "tx_hash": goodHash},
		map[string]string{"X-Wallet-Address": buyerAddr})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result payments.ConfirmResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, domain.TradeStatusCompleted, result.Status)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v2/trades/%d/status", instr.TradeID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info domain.TradeStatusInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, domain.TradeStatusCompleted, info.CurrentStatus)
	assert.Equal(t, goodHash, info.TxHash)

	w = env.do(http.MethodGet, "/api/v2/trades/424242/status", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssetEndpoints(t *testing.T) {
	env := newTestEnv(t)
	asset := env.seedAsset()

	w := env.do(http.MethodGet, fmt.Sprintf("/api/v2/assets/%d", asset.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data domain.AssetData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, asset.ID, data.Asset.ID)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v2/assets/%d/consistency", asset.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report consistency.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Zero(t, report.IssuesFound)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v2/assets/999", nil, nil).Code)
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v2/admin/payments", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v2/admin/payments", nil,
		map[string]string{"Authorization": "Bearer garbage"}).Code)

	token, err := env.authSvc.GenerateAdminToken(context.Background(), "admin-1", "payments")
	require.NoError(t, err)
	auth := map[string]string{"Authorization": "Bearer " + token}

	_, err = env.pays.Create(context.Background(), &domain.PendingPayment{
		PaymentType:      domain.PaymentTypeCommission,
		Title:            "Referral commission",
		Amount:           12.5,
		TokenSymbol:      "USDC",
		RecipientAddress: buyerAddr,
		Status:           domain.PaymentStatusPending,
		Priority:         domain.PaymentPriorityNormal,
	})
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/api/v2/admin/payments", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)

	// Completing a payout requires a plausible settlement hash.
	w = env.do(http.MethodPut, "/api/v2/admin/payments/1/status", gin.H{"status": "completed"}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/api/v2/admin/payments/1/status", gin.H{"status": "completed", "tx_hash": goodHash}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := env.pays.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, stored.Status)
	assert.Equal(t, "admin-1", stored.ProcessedBy)

	assert.Equal(t, http.StatusNotFound,
		env.do(http.MethodPut, "/api/v2/admin/payments/99/status", gin.H{"status": "failed"}, auth).Code)

	w = env.do(http.MethodPost, "/api/v2/admin/rollbacks/sweep", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v2/admin/rollbacks", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
}
