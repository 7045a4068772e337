// Package rbac gates HTTP routes by the role carried in the access token.
package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	RoleResident = "resident"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Valid reports whether a role is one the platform issues tokens for.
func Valid(role string) bool {
	switch role {
	case RoleResident, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// RequireAnyRole aborts with 403 unless the authenticated user's role is one
// of the allowed set. It must run after the auth middleware.
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString("role")
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
