package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/server/websocket"
	"github.com/brickmint/rws/pkg/config"
	"github.com/brickmint/rws/pkg/validation"
)

type WebSocketHandler struct {
	hub      *websocket.WsHub
	upgrader gws.Upgrader
	logger   zerolog.Logger
}

func NewWebSocketHandler(hub *websocket.WsHub, cfg config.WebSocketConfig, logger zerolog.Logger) *WebSocketHandler {
	readBuf, writeBuf := cfg.ReadBufferSize, cfg.WriteBufferSize
	if readBuf == 0 {
		readBuf = 1024
	}
	if writeBuf == 0 {
		writeBuf = 1024
	}
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: gws.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin: func(r *http.Request) bool {
				return !cfg.CheckOrigin || r.Header.Get("Origin") == ""
			},
		},
	}
}

// HandleConnection subscribes a wallet to its trade status stream. The wallet
// comes from the query string so browser WebSocket clients can connect without
// custom headers.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	wallet := c.Query("wallet")
	if !validation.IsValidSolanaAddress(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid or missing wallet query parameter",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &websocket.WsClient{WalletAddress: wallet, Conn: conn}
	h.hub.Register <- client
	go client.ReadLoop(h.hub)
}
