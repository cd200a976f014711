package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickmint/rws/pkg/config"
)

const (
	testBuyer  = "4Nd1mYvM3xXqRFnoqYdWZTFMuMvMYwUyVtyjNUpicieV"
	testSeller = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *SolanaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewSolanaClient(&config.SolanaConfig{
		RPCURL:  srv.URL,
		Cluster: "devnet",
		Timeout: 5 * time.Second,
		MintAddresses: map[string]string{
			"USDC": "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		},
	}, zerolog.Nop())
}

func rpcHandler(t *testing.T, results map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, ok := results[req.Method]
		require.True(t, ok, "unexpected method %s", req.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}
}

func TestPrepareTransferTransaction(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, map[string]string{
		"getLatestBlockhash": `{"value":{"blockhash":"GHtXQBsoZHVnNFa9YevAzFr17DJjgHXk3ycTKD5xD3Zi"}}`,
	}))

	transfer, err := client.PrepareTransferTransaction(context.Background(), "USDC", testBuyer, testSeller, 125.5)
	require.NoError(t, err)

	assert.Equal(t, "GHtXQBsoZHVnNFa9YevAzFr17DJjgHXk3ycTKD5xD3Zi", transfer.Blockhash)
	assert.Equal(t, testBuyer, transfer.FromAddress)
	assert.Equal(t, testSeller, transfer.ToAddress)

	raw, err := base64.StdEncoding.DecodeString(transfer.Transaction)
	require.NoError(t, err)

	var payload transferPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, uint64(125500000), payload.Units)
	assert.Equal(t, 6, payload.Decimals)
	assert.Equal(t, "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", payload.Mint)
}

func TestPrepareTransferTransactionRejectsBadAddress(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, map[string]string{
		"getLatestBlockhash": `{"value":{"blockhash":"abc"}}`,
	}))

	_, err := client.PrepareTransferTransaction(context.Background(), "USDC", "not-base58-0OIl", testSeller, 1)
	assert.Error(t, err)
}

func TestPrepareTransferTransactionUnknownToken(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, nil))

	_, err := client.PrepareTransferTransaction(context.Background(), "DOGE", testBuyer, testSeller, 1)
	assert.Error(t, err)
}

func TestCheckTransactionConfirmed(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, map[string]string{
		"getSignatureStatuses": `{"value":[{"slot":301,"confirmations":null,"confirmationStatus":"finalized","err":null}]}`,
	}))

	status, err := client.CheckTransaction(context.Background(), "somehash")
	require.NoError(t, err)
	assert.True(t, status.Confirmed)
	assert.Empty(t, status.Error)
	assert.Equal(t, uint64(301), status.Slot)
}

func TestCheckTransactionNotFound(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, map[string]string{
		"getSignatureStatuses": `{"value":[null]}`,
	}))

	status, err := client.CheckTransaction(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, status.Confirmed)
	assert.Empty(t, status.Error)
}

func TestCheckTransactionFailedOnChain(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, map[string]string{
		"getSignatureStatuses": `{"value":[{"slot":120,"confirmations":3,"confirmationStatus":"confirmed","err":{"InstructionError":[0,"Custom"]}}]}`,
	}))

	status, err := client.CheckTransaction(context.Background(), "failedhash")
	require.NoError(t, err)
	assert.False(t, status.Confirmed)
	assert.NotEmpty(t, status.Error)
}

func TestCallSurfacesRPCError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"node is behind"}}`))
	})

	_, err := client.CheckTransaction(context.Background(), "any")
	assert.ErrorContains(t, err, "node is behind")
}
