package middleware

import (
	"strings"

	"leguardian-http-service/config"
	"leguardian-http-service/internal/error/response"
	"leguardian-http-service/services"

	"github.com/gin-gonic/gin"
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware initializes the authentication middleware
func InitAuthMiddleware(cfg *config.Config) {
	jwtService = services.NewJWTService(cfg)
}

// extractToken strips the Bearer prefix from an authorization header
func extractToken(authHeader string) string {
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// AuthenticateGuardian validates the guardian access token and stores the
// guardian ID in the request context
func AuthenticateGuardian() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := jwtService.ExtractClaims(extractToken(authHeader))
		if err != nil {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("guardianID", claims.GuardianID)
		c.Set("guardianEmail", claims.Email)
		c.Next()
	}
}

// GuardianID returns the authenticated guardian ID from the context
func GuardianID(c *gin.Context) uint {
	if id, exists := c.Get("guardianID"); exists {
		if guardianID, ok := id.(uint); ok {
			return guardianID
		}
	}
	return 0
}
