package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"roblox-license-platform/configs"
	"roblox-license-platform/internal/cache"
	"roblox-license-platform/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token and stores the operator
// identity in the request context.
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("token", tokenString)

		c.Next()
	}
}

// LoginThrottleMiddleware caps auth attempts per source IP per hour. This
// guards the operator login surface only; verification traffic is never
// throttled here.
func LoginThrottleMiddleware(cacheMgr *cache.CacheManager, authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := authService.GetClientIPv4(c)
		key := fmt.Sprintf("login_attempts:%s:%s", ip, time.Now().Format("2006-01-02-15"))

		count, err := cacheMgr.Increment(key, 1)
		if err != nil {
			// If the counter store fails, let the request through
			c.Next()
			return
		}

		if count == 1 {
			cacheMgr.Expire(key, time.Hour)
		}

		if count > int64(configs.AppConfig.LoginAttemptsPerHour) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, try again later"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ValidationMiddleware rejects mutating requests without a JSON body.
func ValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
			contentType := c.GetHeader("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Content-Type must be application/json"})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
