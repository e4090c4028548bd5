package handlers

import (
	"errors"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/baberlabs/chatr-sub000/internal/metrics"
	"github.com/baberlabs/chatr-sub000/internal/realtime"
)

// RealtimeHandler upgrades authenticated clients onto the realtime gateway.
type RealtimeHandler struct {
	dispatcher *realtime.Dispatcher
	auth       *realtime.Authenticator
}

func NewRealtimeHandler(dispatcher *realtime.Dispatcher, auth *realtime.Authenticator) *RealtimeHandler {
	return &RealtimeHandler{
		dispatcher: dispatcher,
		auth:       auth,
	}
}

// WebSocketAuth authenticates the connection attempt before the upgrade. The
// credential comes from the auth payload, the Authorization header, or the
// jwt cookie, in that order; a rejected attempt never joins the gateway.
func (h *RealtimeHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	token := realtime.TokenFromRequest(c.Query("token"), c.Get("Authorization"), c.Cookies("jwt"))

	userID, err := h.auth.Authenticate(c.Context(), token)
	if err != nil {
		reason := rejectionReason(err)
		metrics.ConnectionAuthFailures.WithLabelValues(reason).Inc()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": reason})
	}

	c.Locals("user_id", userID)
	return c.Next()
}

// HandleWebSocket runs one connection's lifecycle: register, pump, clean up.
func (h *RealtimeHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := realtime.NewConnection(userID, conn)

	h.dispatcher.Connect(client)
	go client.WritePump()
	h.dispatcher.ReadLoop(client)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, realtime.ErrMissingCredential):
		return "missing credential"
	case errors.Is(err, realtime.ErrExpiredCredential):
		return "expired credential"
	case errors.Is(err, realtime.ErrUnknownUser):
		return "unknown user"
	default:
		return "invalid credential"
	}
}
