package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plategate/internal/auth"
)

const (
	authorizationHeader = "Authorization"
	bearerType          = "Bearer"
	SubjectKey          = "subject"
)

// Auth requires a valid bearer token. A nil parser disables the check, which
// is how the service runs when no JWT secret is configured.
func Auth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if parser == nil {
			c.Next()
			return
		}

		fields := strings.Fields(c.GetHeader(authorizationHeader))
		if len(fields) != 2 || !strings.EqualFold(fields[0], bearerType) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := parser.Parse(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
