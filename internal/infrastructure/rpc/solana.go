package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/pkg/config"
	"github.com/brickmint/rws/pkg/currency"
)

// IChainClient is the blockchain surface the settlement core consumes. The
// chain is a black box behind it: payloads out, confirmation status in.
type IChainClient interface {
	PrepareTransferTransaction(ctx context.Context, tokenSymbol, fromAddress, toAddress string, amount float64) (*domain.UnsignedTransfer, error)
	CheckTransaction(ctx context.Context, txHash string) (*domain.TxStatus, error)
}

type SolanaClient struct {
	rpcURL        string
	cluster       string
	mintAddresses map[string]string
	httpClient    *http.Client
	currencyUtils *currency.CurrencyUtils
	logger        zerolog.Logger
}

func NewSolanaClient(cfg *config.SolanaConfig, logger zerolog.Logger) *SolanaClient {
	return &SolanaClient{
		rpcURL:        cfg.RPCURL,
		cluster:       cfg.Cluster,
		mintAddresses: cfg.MintAddresses,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		currencyUtils: currency.NewCurrencyUtils(),
		logger:        logger,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *SolanaClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("body", string(respBody)).
			Msg("Solana RPC returned non-200")
		return fmt.Errorf("rpc call %s returned status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode rpc result: %w", err)
		}
	}
	return nil
}

type blockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// GetLatestBlockhash fetches a recent blockhash for transaction assembly.
func (c *SolanaClient) GetLatestBlockhash(ctx context.Context) (string, error) {
	var result blockhashResult
	if err := c.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", fmt.Errorf("node returned empty blockhash")
	}
	return result.Value.Blockhash, nil
}

// transferPayload is what the signing frontend receives: enough to assemble
// and sign the SPL transfer client-side. USDC uses 6 decimals.
type transferPayload struct {
	Instruction string `json:"instruction"`
	Mint        string `json:"mint"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Units       uint64 `json:"units"`
	Decimals    int    `json:"decimals"`
	Blockhash   string `json:"recent_blockhash"`
}

func (c *SolanaClient) PrepareTransferTransaction(ctx context.Context, tokenSymbol, fromAddress, toAddress string, amount float64) (*domain.UnsignedTransfer, error) {
	mint, ok := c.mintAddresses[tokenSymbol]
	if !ok {
		return nil, fmt.Errorf("no mint address configured for token %s on cluster %s", tokenSymbol, c.cluster)
	}

	for _, addr := range []string{fromAddress, toAddress} {
		decoded, err := base58.Decode(addr)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, addr)
		}
	}

	blockhash, err := c.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	payload := transferPayload{
		Instruction: "spl_transfer_checked",
		Mint:        mint,
		Source:      fromAddress,
		Destination: toAddress,
		Units:       c.currencyUtils.ToTokenUnits(amount, 6),
		Decimals:    6,
		Blockhash:   blockhash,
	}

	txBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer payload: %w", err)
	}
	msgBytes, err := json.Marshal(payload.Instruction + ":" + payload.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer message: %w", err)
	}

	c.logger.Info().
		Str("token", tokenSymbol).
		Str("from", fromAddress).
		Str("to", toAddress).
		Float64("amount", amount).
		Msg("Prepared unsigned transfer")

	return &domain.UnsignedTransfer{
		TokenSymbol: tokenSymbol,
		FromAddress: fromAddress,
		ToAddress:   toAddress,
		Amount:      amount,
		Transaction: base64.StdEncoding.EncodeToString(txBytes),
		Message:     base64.StdEncoding.EncodeToString(msgBytes),
		Blockhash:   blockhash,
	}, nil
}

type signatureStatusesResult struct {
	Value []*struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	} `json:"value"`
}

func (c *SolanaClient) CheckTransaction(ctx context.Context, txHash string) (*domain.TxStatus, error) {
	var result signatureStatusesResult
	params := []interface{}{
		[]string{txHash},
		map[string]bool{"searchTransactionHistory": true},
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	status := &domain.TxStatus{TxHash: txHash}
	if len(result.Value) == 0 || result.Value[0] == nil {
		// Not found yet: keep polling, the signature may still land.
		return status, nil
	}

	entry := result.Value[0]
	status.Slot = entry.Slot
	if entry.Confirmations != nil {
		status.Confirmations = *entry.Confirmations
	}
	if entry.Err != nil && string(entry.Err) != "null" {
		status.Error = string(entry.Err)
		return status, nil
	}
	if entry.ConfirmationStatus == "confirmed" || entry.ConfirmationStatus == "finalized" {
		status.Confirmed = true
	}
	return status, nil
}
