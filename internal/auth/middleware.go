package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireUser verifies an access token and injects the user identity into
// the request context. Visitors have no REST surface; call mutations they
// perform go over the signaling connection.
func RequireUser(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id := NewUser(claims.UserID, claims.Name, claims.Role)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))

		// Also store on gin context for handler convenience.
		c.Set("identity", id)
		c.Set("user_id", id.UserID)
		c.Set("role", id.Role)

		c.Next()
	}
}

// ResolveHandshake resolves the connection-time identity for the signaling
// handshake. A valid bearer token (header or ?token=) yields a user; anything
// else downgrades to a visitor. Connections are never refused for bad or
// missing credentials.
func ResolveHandshake(m *Manager, c *gin.Context, now time.Time) Identity {
	tok := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if strings.HasPrefix(tok, bearerPrefix) {
		tok = strings.TrimPrefix(tok, bearerPrefix)
	} else {
		tok = strings.TrimSpace(c.Query("token"))
	}

	if tok != "" {
		if claims, err := m.Verify(tok, now); err == nil {
			return NewUser(claims.UserID, claims.Name, claims.Role)
		}
	}

	return NewVisitor(c.Query("visitorId"), c.Query("displayName"), c.Query("phone"))
}
