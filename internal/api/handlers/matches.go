package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/transcendence/backend/internal/matches"
)

// GetMyMatches returns the caller's match history.
func GetMyMatches(recorder *matches.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		idI, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		history, err := recorder.ListForUser(idI.(int), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch matches"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": history})
	}
}
