package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/transcendence/backend/internal/auth"
	"github.com/transcendence/backend/internal/game"
)

// Inbound message data types
type RoomJoinData struct {
	RoomID string `json:"roomId"`
}

type GameMoveData struct {
	Position float64 `json:"position"`
}

// GameHub is the single hub for all rooms.
var GameHub *Hub

func init() {
	GameHub = NewHub()
	go runGameHub(GameHub)
}

var userStore game.UserStore

// SetUserStore wires the user store used for presence updates.
func SetUserStore(s game.UserStore) {
	userStore = s
}

// HandleWebSocket upgrades an authenticated connection into the realtime
// gateway. The JWT travels as a query parameter because browsers cannot set
// headers on WebSocket handshakes.
func HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	userID, username, err := auth.VerifyToken(wsConfig, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		userID:   userID,
		username: username,
		send:     make(chan []byte, 256),
	}

	GameHub.register <- client

	go client.writePump()
	go client.readPump()
}

// runGameHub owns the client registry.
func runGameHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if oldClient, exists := h.clients[client.userID]; exists {
				log.Printf("[WS] User %d reconnecting - closing old connection", client.userID)
				if err := oldClient.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(5*time.Second)); err != nil {
					log.Printf("[WS] Error writing close control to old client %d: %v", oldClient.userID, err)
				}
				oldClient.conn.Close()
				select {
				case <-oldClient.send:
				default:
					close(oldClient.send)
				}
				delete(h.clients, client.userID)
				if roomID := oldClient.currentRoom(); roomID != "" {
					if room, ok := h.rooms[roomID]; ok {
						delete(room, oldClient.userID)
					}
					// The new connection inherits the room subscription.
					client.setRoom(roomID)
					if _, ok := h.rooms[roomID]; !ok {
						h.rooms[roomID] = make(map[int]*Client)
					}
					h.rooms[roomID][client.userID] = client
				}
			}
			h.clients[client.userID] = client
			h.mu.Unlock()

			log.Printf("[WS] User %d (%s) connected", client.userID, client.username)

			if userStore != nil {
				if err := userStore.UpdateUser(client.userID, map[string]interface{}{"status": game.UserOnline}); err != nil {
					log.Printf("[WS] Failed to mark user %d online: %v", client.userID, err)
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			cur, ok := h.clients[client.userID]
			if ok && cur == client {
				delete(h.clients, client.userID)
				if roomID := client.currentRoom(); roomID != "" {
					if room, exists := h.rooms[roomID]; exists {
						delete(room, client.userID)
						if len(room) == 0 {
							delete(h.rooms, roomID)
						}
					}
				}
				select {
				case <-client.send:
				default:
					close(client.send)
				}
			}
			h.mu.Unlock()

			if ok && cur == client {
				log.Printf("[WS] User %d disconnected", client.userID)

				// A dropped connection leaves the room; an in-progress game
				// treats that as a surrender.
				if game.Coord != nil {
					if err := game.Coord.LeaveRoom(client.userID); err != nil && err != game.ErrNotInRoom {
						log.Printf("[WS] Leave on disconnect failed for user %d: %v", client.userID, err)
					}
					game.Coord.LeaveQueue(client.userID)
				}
				if userStore != nil {
					if err := userStore.UpdateUser(client.userID, map[string]interface{}{"status": game.UserOffline}); err != nil {
						log.Printf("[WS] Failed to mark user %d offline: %v", client.userID, err)
					}
				}
			}
		}
	}
}

// readPump reads and dispatches inbound frames.
func (c *Client) readPump() {
	defer func() {
		GameHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error (unexpected) for user %d: %v", c.userID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes an inbound client frame.
func (c *Client) handleMessage(msg WSMessage) {
	if game.Coord == nil {
		c.sendError("Service not ready")
		return
	}

	switch msg.Type {
	case "room:join":
		var data RoomJoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.RoomID == "" {
			c.sendError("Invalid room data")
			return
		}
		c.handleRoomJoin(data.RoomID)

	case "room:leave":
		c.handleRoomLeave()

	case "game:start":
		c.handleGameStart()

	case "game:move":
		var data GameMoveData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid move data")
			return
		}
		c.handleGameMove(data.Position)

	default:
		c.sendError("Unknown message type")
	}
}

// handleRoomJoin subscribes the client to a room, joining it first when the
// user is not yet a member (room creators arrive already registered).
func (c *Client) handleRoomJoin(roomID string) {
	room, err := game.Coord.GetRoom(roomID)
	if err != nil {
		c.sendError("Room not found")
		return
	}

	if !room.HasPlayer(c.userID) {
		// Subscribe first so the membership broadcast reaches the joiner too.
		GameHub.subscribe(c, roomID)
		if err := game.Coord.JoinRoom(roomID, game.Player{ID: c.userID, Username: c.username}); err != nil {
			GameHub.unsubscribe(c)
			c.sendError(err.Error())
			return
		}
		return
	}

	GameHub.subscribe(c, roomID)
	GameHub.SendToUser(c.userID, "room:update", room.Snapshot())
}

func (c *Client) handleRoomLeave() {
	if err := game.Coord.LeaveRoom(c.userID); err != nil {
		c.sendError(err.Error())
		return
	}
	GameHub.unsubscribe(c)
}

func (c *Client) handleGameStart() {
	roomID := c.currentRoom()
	if roomID == "" {
		c.sendError("Not in a room")
		return
	}
	if err := game.Coord.StartGame(roomID, c.userID); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) handleGameMove(position float64) {
	room, ok := game.Coord.RoomForUser(c.userID)
	if !ok {
		c.sendError("Not in a room")
		return
	}
	session := room.Session()
	if session == nil {
		c.sendError("No game in progress")
		return
	}
	session.UpdatePaddle(c.userID, position)
}
