package middleware

import (
	"net/http"
	"strings"

	"github.com/ArowuTest/prizedraw-engine/internal/services"
	"github.com/ArowuTest/prizedraw-engine/pkg/jwt"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

const callerKey = "caller"

// JWTAuthMiddleware verifies the bearer token and stores the resulting services.Caller
// in the gin context.
func JWTAuthMiddleware(tokens *jwt.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer "})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(authHeader[len(bearerSchema):]))
		if err != nil {
			slog.Warn("Token validation failed", "error", err, "requestId", c.GetString(requestIDKey))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(callerKey, services.Caller{
			ID:           claims.Subject,
			MemberID:     claims.MemberID,
			Capabilities: services.CapabilitiesFromClaims(claims.Capabilities),
		})
		c.Next()
	}
}

// CallerFromContext returns the caller stored by JWTAuthMiddleware
func CallerFromContext(c *gin.Context) (services.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return services.Caller{}, false
	}
	caller, ok := v.(services.Caller)
	return caller, ok
}
