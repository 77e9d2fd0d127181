package handlers

import (
	"net/http"

	"github.com/agentportal/aserver/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthMiddleware struct {
	Tokens *services.TokenService
	Logger *zap.Logger
}

func NewAuthMiddleware(tokens *services.TokenService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{Tokens: tokens, Logger: logger}
}

// RequireAgent validates the Bearer session token issued by /agentverify and
// puts the agent's identity on the context. With no token service configured
// every request passes through unchanged.
func (m *AuthMiddleware) RequireAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.Tokens == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization header is required"})
			c.Abort()
			return
		}

		token, err := services.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			c.Abort()
			return
		}

		claims, err := m.Tokens.Validate(token)
		if err != nil {
			m.Logger.Warn("rejected session token",
				zap.String("request_id", c.GetString(requestIDKey)),
				zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("agent_id", claims.AgentID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}
