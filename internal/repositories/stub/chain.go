package stub

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/brickmint/rws/internal/domain"
)

// ChainClient implements rpc.IChainClient for tests. Confirmations are driven
// by the Statuses map keyed on tx hash; unknown hashes come back unconfirmed.
type ChainClient struct {
	mu       sync.Mutex
	Statuses map[string]*domain.TxStatus
	// PrepareErr fails PrepareTransferTransaction; CheckErr fails CheckTransaction.
	PrepareErr error
	CheckErr   error

	Prepared []domain.UnsignedTransfer
	Checked  []string
}

func NewChainClient() *ChainClient {
	return &ChainClient{Statuses: make(map[string]*domain.TxStatus)}
}

// Confirm marks a hash as confirmed on the stub chain.
func (c *ChainClient) Confirm(txHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[txHash] = &domain.TxStatus{TxHash: txHash, Confirmed: true, Confirmations: 32}
}

// Fail marks a hash as failed on the stub chain.
func (c *ChainClient) Fail(txHash, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[txHash] = &domain.TxStatus{TxHash: txHash, Error: reason}
}

func (c *ChainClient) PrepareTransferTransaction(_ context.Context, tokenSymbol, fromAddress, toAddress string, amount float64) (*domain.UnsignedTransfer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PrepareErr != nil {
		return nil, c.PrepareErr
	}
	payload := fmt.Sprintf("%s:%s->%s:%f", tokenSymbol, fromAddress, toAddress, amount)
	t := domain.UnsignedTransfer{
		TokenSymbol: tokenSymbol,
		FromAddress: fromAddress,
		ToAddress:   toAddress,
		Amount:      amount,
		Transaction: base64.StdEncoding.EncodeToString([]byte(payload)),
		Blockhash:   "stub-blockhash",
	}
	c.Prepared = append(c.Prepared, t)
	return &t, nil
}

func (c *ChainClient) CheckTransaction(_ context.Context, txHash string) (*domain.TxStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Checked = append(c.Checked, txHash)
	if c.CheckErr != nil {
		return nil, c.CheckErr
	}
	if s, ok := c.Statuses[txHash]; ok {
		cp := *s
		return &cp, nil
	}
	return &domain.TxStatus{TxHash: txHash, Confirmed: false}, nil
}
