package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client represents a connected WebSocket client
type Client struct {
	conn     *websocket.Conn
	userID   int
	username string
	send     chan []byte

	mu     sync.Mutex
	roomID string // room the client is subscribed to, "" if none
}

func (c *Client) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) setRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

// Hub maintains the set of active clients
type Hub struct {
	clients    map[int]*Client            // userID -> Client
	rooms      map[string]map[int]*Client // roomID -> userID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int]*Client),
		rooms:      make(map[string]map[int]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Emit sends a typed event to every client subscribed to a room. It is the
// broadcast sink the game package writes room:update, game:state and
// game:end frames into.
func (h *Hub) Emit(roomID string, event string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": payload,
	})
	if err != nil {
		log.Printf("[WS] Error marshaling %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[roomID]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				// Client's buffer is full
				log.Printf("[WS] send buffer full for user %d in room %s, dropping %s", client.userID, roomID, event)
			}
		}
	}
}

// SendToUser sends a typed event to a single connected user.
func (h *Hub) SendToUser(userID int, event string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": payload,
	})
	if err != nil {
		log.Printf("[WS] Error marshaling %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[userID]; exists {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] SendToUser dropped %s for user %d (buffer full)", event, userID)
		}
	}
}

// subscribe places a client into a room's broadcast set.
func (h *Hub) subscribe(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old := c.currentRoom(); old != "" && old != roomID {
		if room, exists := h.rooms[old]; exists {
			delete(room, c.userID)
			if len(room) == 0 {
				delete(h.rooms, old)
			}
		}
	}

	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[int]*Client)
	}
	h.rooms[roomID][c.userID] = c
	c.setRoom(roomID)
}

// unsubscribe removes a client from its room's broadcast set.
func (h *Hub) unsubscribe(c *Client) {
	roomID := c.currentRoom()
	if roomID == "" {
		return
	}

	h.mu.Lock()
	if room, exists := h.rooms[roomID]; exists {
		delete(room, c.userID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
	c.setRoom("")
}

// Message types
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed; connection is being replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for user %d: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for user %d: %v", c.userID, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	select {
	case c.send <- data:
	default:
	}
}
