package websocket

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
)

// WsHub fans trade status updates out to connected wallets. Clients subscribe
// with their wallet address; a message with an empty address goes to everyone.
type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Broadcast  chan WsMessage
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

type WsClient struct {
	WalletAddress string
	Conn          *websocket.Conn
}

type WsMessage struct {
	Type          string             `json:"type"`
	WalletAddress string             `json:"-"`
	TradeID       int64              `json:"trade_id,omitempty"`
	FromStatus    domain.TradeStatus `json:"from_status,omitempty"`
	ToStatus      domain.TradeStatus `json:"to_status,omitempty"`
	Trade         *domain.Trade      `json:"trade,omitempty"`
	AssetID       int64              `json:"asset_id,omitempty"`
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan WsMessage, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.WalletAddress] == nil {
				h.Clients[client.WalletAddress] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.WalletAddress][client.Conn] = true
			h.Logger.Info().
				Str("wallet", client.WalletAddress).
				Int("connection_count", len(h.Clients[client.WalletAddress])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.WalletAddress]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.WalletAddress)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("wallet", client.WalletAddress).
					Msg("WebSocket client unregistered")
			}

		case message := <-h.Broadcast:
			h.deliver(message)
		}
	}
}

func (h *WsHub) deliver(message WsMessage) {
	if message.WalletAddress == "" {
		for wallet, clients := range h.Clients {
			h.send(wallet, clients, message)
		}
		return
	}
	if clients, ok := h.Clients[message.WalletAddress]; ok {
		h.send(message.WalletAddress, clients, message)
	}
}

func (h *WsHub) send(wallet string, clients map[*websocket.Conn]bool, message WsMessage) {
	for conn := range clients {
		if err := conn.WriteJSON(message); err != nil {
			h.Logger.Err(err).
				Str("wallet", wallet).
				Int64("trade_id", message.TradeID).
				Msg("Failed to send WebSocket message")
			conn.Close()
			delete(clients, conn)
		}
	}
	if len(clients) == 0 {
		delete(h.Clients, wallet)
	}
}

// NotifyTradeStatus implements the status manager's notifier without blocking
// the settlement path: a full broadcast buffer drops the update.
func (h *WsHub) NotifyTradeStatus(trade *domain.Trade, from, to domain.TradeStatus) {
	msg := WsMessage{
		Type:          "trade_status",
		WalletAddress: trade.TraderAddress,
		TradeID:       trade.ID,
		FromStatus:    from,
		ToStatus:      to,
		Trade:         trade,
	}
	if trade.AssetID != nil {
		msg.AssetID = *trade.AssetID
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.Logger.Warn().Int64("trade_id", trade.ID).Msg("WebSocket broadcast buffer full, update dropped")
	}
}
