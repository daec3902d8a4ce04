package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/transcendence/backend/internal/config"
)

var rdbClient *redis.Client
var wsConfig *config.Config

func SetRedisClient(r *redis.Client, cfg *config.Config) {
	rdbClient = r
	wsConfig = cfg
}

// StartRoomEventSubscriber subscribes to the room_events channel and relays
// incoming events to room subscribers. Lobby lifecycle workers publish here
// so every instance's clients hear about closures.
func StartRoomEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; room event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, "room_events")
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] room_events subscriber started")
		for msg := range ch {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("[WS] invalid room event payload: %v", err)
				continue
			}

			typeStr, _ := payload["type"].(string)
			roomID, _ := payload["room_id"].(string)
			if roomID == "" {
				continue
			}

			log.Printf("[WS] room event received: type=%s room=%s", typeStr, roomID)

			switch typeStr {
			case "room_closed":
				GameHub.Emit(roomID, "room:closed", map[string]interface{}{
					"roomId":  roomID,
					"message": payload["message"],
				})

				// Drop the subscriptions; the room no longer exists.
				GameHub.mu.Lock()
				if room, exists := GameHub.rooms[roomID]; exists {
					for _, client := range room {
						client.setRoom("")
					}
					delete(GameHub.rooms, roomID)
				}
				GameHub.mu.Unlock()

			default:
				log.Printf("[WS] unknown room event type: %s", typeStr)
			}
		}
	}()
}
