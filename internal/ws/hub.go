package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"parkwatch-service/internal/domain/parking"
)

// Event is the wire shape of a hub broadcast.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Hub fans out alert events to connected clients. Clients that fail a write
// are dropped.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Int("clients", n).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Int("clients", n).Msg("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.log.Warn().Err(err).Msg("dropping websocket client")
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Register(client *websocket.Conn) {
	h.register <- client
}

func (h *Hub) Unregister(client *websocket.Conn) {
	h.unregister <- client
}

// BroadcastViolation notifies clients of a newly stored alert.
func (h *Hub) BroadcastViolation(record parking.AlertRecord) {
	h.send(Event{
		Type:      "new_violation",
		Data:      record,
		Timestamp: time.Now().Unix(),
	})
}

// BroadcastReset notifies clients that all alerts were cleared.
func (h *Hub) BroadcastReset() {
	h.send(Event{
		Type:      "alerts_reset",
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) send(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal websocket event")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn().Str("type", event.Type).Msg("websocket broadcast queue full, dropping event")
	}
}
