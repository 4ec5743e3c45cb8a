package context

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const HeaderActor = "X-Actor-Id"

func RequestIDFromGin(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value := RequestIDFromContext(c.Request.Context()); value != "" {
		return value
	}
	return strings.TrimSpace(c.GetString("request_id"))
}

// ActorMiddleware copies the upstream-authenticated actor header into the request context.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader(HeaderActor)); actor != "" {
			c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}
