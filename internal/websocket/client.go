package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer     = 16
	maxInboundSize = 512
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	writeWait      = 10 * time.Second
)

// Client is one open notification socket. Inbound frames are read only to
// service pongs and detect disconnects.
type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Any origin is accepted; the caller authenticates the token before upgrading.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams userID's events until the peer
// goes away. A "connected" event is queued first so clients can confirm the
// subscription.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	client := &Client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
	}
	if hello, err := json.Marshal(Event{Type: EventConnected, Data: map[string]any{"userId": userID}, At: time.Now().UTC()}); err == nil {
		client.send <- hello
	}
	hub.Register(userID, client)
	zap.L().Debug("notification socket opened", zap.String("user_id", userID), zap.Int("connections", hub.Connections(userID)))
	go client.writeLoop()
	client.readLoop(hub)
}

func (c *Client) readLoop(hub *Hub) {
	defer func() {
		hub.Unregister(c.userID, c)
		_ = c.conn.Close()
		zap.L().Debug("notification socket closed", zap.String("user_id", c.userID))
	}()
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("notification socket dropped", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

// writeLoop drains send until the hub closes it on unregister.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
