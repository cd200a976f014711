package domain

import "github.com/golang-jwt/jwt/v5"

// UnsignedTransfer is a prepared transfer payload a wallet still has to sign.
// Transaction and Message are base64, the way the signing frontend expects them.
type UnsignedTransfer struct {
	TokenSymbol string  `json:"token_symbol"`
	FromAddress string  `json:"from_address"`
	ToAddress   string  `json:"to_address"`
	Amount      float64 `json:"amount"`
	Transaction string  `json:"transaction"`
	Message     string  `json:"message"`
	Blockhash   string  `json:"blockhash"`
}

// TxStatus is the chain client's view of a submitted transaction.
type TxStatus struct {
	TxHash        string `json:"tx_hash"`
	Confirmed     bool   `json:"confirmed"`
	Confirmations int    `json:"confirmations"`
	Slot          uint64 `json:"slot,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AdminClaims is the JWT payload for admin payment-management endpoints.
type AdminClaims struct {
	AdminID string `json:"admin_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}
