package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transcendence/backend/internal/config"
	"github.com/transcendence/backend/internal/game"
)

func currentPlayer(c *gin.Context) (game.Player, bool) {
	idI, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return game.Player{}, false
	}
	nameI, _ := c.Get("username")
	username, _ := nameI.(string)
	return game.Player{ID: idI.(int), Username: username}, true
}

// ListRooms returns snapshots of all public rooms.
func ListRooms() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": game.Coord.ListRooms(false)})
	}
}

// CreateRoom creates a new lobby owned by the caller.
func CreateRoom(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := currentPlayer(c)
		if !ok {
			return
		}

		var req struct {
			Name         string   `json:"name"`
			IsPrivate    bool     `json:"isPrivate"`
			PaddleRatio  *float64 `json:"paddleRatio"`
			GameDuration *int     `json:"gameDuration"`
			BallSpeed    *float64 `json:"ballSpeed"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		paddleRatio := cfg.DefaultPaddleRatio
		if req.PaddleRatio != nil {
			paddleRatio = *req.PaddleRatio
		}
		duration := cfg.DefaultGameDuration
		if req.GameDuration != nil {
			duration = *req.GameDuration
		}
		ballSpeed := cfg.DefaultBallSpeed
		if req.BallSpeed != nil {
			ballSpeed = *req.BallSpeed
		}

		room, err := game.Coord.CreateRoom(player, req.Name, req.IsPrivate, paddleRatio, duration, ballSpeed)
		if err != nil {
			status := http.StatusConflict
			if err == game.ErrInvalidDuration {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"room": room.Snapshot()})
	}
}

// GetRoom returns a single room snapshot, falling back to the Redis cache
// when the room is not hosted on this instance.
func GetRoom() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("id")

		room, err := game.Coord.GetRoom(roomID)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"room": room.Snapshot()})
			return
		}

		if snapshot, err := game.Coord.LoadRoomSnapshot(roomID); err == nil {
			c.JSON(http.StatusOK, gin.H{"room": snapshot})
			return
		}

		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	}
}

// LeaveRoom removes the caller from their current room.
func LeaveRoom() gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := currentPlayer(c)
		if !ok {
			return
		}

		if err := game.Coord.LeaveRoom(player.ID); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"left": true})
	}
}

// JoinQueue places the caller in the matchmaking queue. When an opponent is
// already waiting, the response carries the freshly created room.
func JoinQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := currentPlayer(c)
		if !ok {
			return
		}

		room, err := game.Coord.JoinQueue(player)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if room == nil {
			c.JSON(http.StatusOK, gin.H{"queued": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"queued": false, "room": room.Snapshot()})
	}
}

// LeaveQueue removes the caller from the matchmaking queue.
func LeaveQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := currentPlayer(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": game.Coord.LeaveQueue(player.ID)})
	}
}
