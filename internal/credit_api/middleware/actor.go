package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ActorIDHeader = "X-Actor-ID"
	ActorIDKey    = "actor_id"
)

// RequireActor rejects requests that do not name the officer or system
// performing them. Mutating routes are grouped behind it.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(ActorIDHeader))
		if actorID == "" {
			response := gin.H{
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": ActorIDHeader + " header is required",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, response)
			return
		}

		c.Set(ActorIDKey, actorID)
		c.Next()
	}
}

// GetActorID returns the actor set by RequireActor
func GetActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}
