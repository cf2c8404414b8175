package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types pushed to connected users.
const (
	EventConnected     = "connected"
	EventLoanFunded    = "loan.funded"
	EventLoanRepayment = "loan.repayment"
	EventLoanRepaid    = "loan.repaid"
	EventROSCAJoined   = "rosca.joined"
	EventKYCUpdated    = "kyc.updated"
)

type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
	At   time.Time      `json:"at"`
}

// Hub fans events out to every open connection of a user. Delivery is best
// effort: a client whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	if _, ok := h.clients[userID][client]; !ok {
		return
	}
	delete(h.clients[userID], client)
	close(client.send)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Publish(userID string, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("encode notification", zap.String("type", event.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			zap.L().Warn("notification dropped", zap.String("user_id", userID), zap.String("type", event.Type))
		}
	}
}
