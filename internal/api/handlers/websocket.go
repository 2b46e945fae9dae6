package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TomasBirkner/hostly-backend/internal/logging"
	ws "github.com/TomasBirkner/hostly-backend/internal/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketUpgrade upgrades the connection and streams hub events to it.
func WebSocketUpgrade(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Logger.WithError(err).Warn("WebSocket upgrade failed")
			return
		}

		client := ws.NewClient(hub)
		hub.Register(client)

		go writePump(conn, client)
		go readPump(conn, client, hub)
	}
}

// writePump is the only writer on conn.
func writePump(conn *websocket.Conn, client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn, client *ws.Client, hub *ws.Hub) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Logger.WithError(err).Warn("WebSocket read error")
			}
			return
		}

		if reply, ok := replyTo(message); ok {
			client.Enqueue(reply)
		}
	}
}

// replyTo answers a client command. Only ping is understood.
func replyTo(message []byte) ([]byte, bool) {
	var cmd ws.ClientCommand
	var msg ws.Message

	if err := json.Unmarshal(message, &cmd); err != nil {
		msg = ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "bad_request", Message: "Invalid message"})
	} else if cmd.Type == ws.TypePing {
		msg = ws.NewMessage(ws.TypePong, nil)
	} else {
		msg = ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:         "unknown_command",
			Message:      "Unsupported message type",
			OriginalType: string(cmd.Type),
		})
	}

	data, err := msg.JSON()
	if err != nil {
		return nil, false
	}
	return data, true
}
