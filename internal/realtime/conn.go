package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/civicpulse/civicpulse/internal/metrics"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Upgrader upgrades notification stream requests. Origin checks are left to
// the token on the request.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve streams sub to conn until the client goes away or ctx ends. It owns
// both conn and sub and closes them on return.
func Serve(ctx context.Context, conn *websocket.Conn, sub *Subscription, logger *slog.Logger) {
	metrics.RealtimeSubscribers.Inc()
	defer metrics.RealtimeSubscribers.Dec()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		readPump(conn, logger)
		cancel()
	}()

	writePump(ctx, conn, sub)
	sub.Close()
	conn.Close()
}

// readPump discards client frames and keeps the read deadline fresh on pong.
// It returns when the connection fails or closes.
func readPump(conn *websocket.Conn, logger *slog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("notification stream read failed", "error", err)
			}
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
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
