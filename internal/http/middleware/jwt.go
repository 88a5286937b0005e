package middleware

import (
	"net/http"
	"strings"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT authenticates requests with a Bearer token and stores the profile ID
// in the gin context under "profile_id".
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		profileID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("profile_id", profileID)
		c.Next()
	}
}
