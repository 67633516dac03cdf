package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	jwtpkg "github.com/synesthesie/verification/pkg/jwt"
)

const AdminSubjectKey = "adminSubject"

// AdminAuth requires a bearer token of type admin.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := jwtpkg.ValidateToken(strings.TrimSpace(token), secret, jwtpkg.AdminToken)
		if err != nil {
			log.Warn().Err(err).Str("ip", c.ClientIP()).Msg("admin token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(AdminSubjectKey, claims.Subject)
		c.Next()
	}
}
