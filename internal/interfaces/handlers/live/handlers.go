// Package live streams property events to websocket clients.
package live

import (
	"time"

	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/infrastructure/realtime"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

const localPropertyID = "live_property_id"

type Handlers struct {
	Hub        *realtime.Hub
	Properties *propsvc.Service
}

// Upgrade rejects plain HTTP requests and unknown properties before the websocket handshake.
func (h *Handlers) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	if _, err := h.Properties.GetProperty(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	c.Locals(localPropertyID, id)
	return c.Next()
}

// Stream GET /ws/properties/:id
func (h *Handlers) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		id, ok := conn.Locals(localPropertyID).(uuid.UUID)
		if !ok {
			conn.Close()
			return
		}
		sub := h.Hub.Subscribe(id)
		done := make(chan struct{})
		go func() {
			defer close(done)
			writePump(conn, sub)
		}()
		readPump(conn)
		h.Hub.Unsubscribe(sub)
		<-done
	})
}

// readPump only drains control frames; clients do not send data.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("live: read failed")
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *realtime.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-sub.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
