package rbac

import (
	"fmt"
	"net/http"

	"call-intelligence/internal/auth"
	"call-intelligence/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireWorkspace rejects requests whose token carries no workspace. Every
// call, audit event and knowledge chunk is scoped by it.
func RequireWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.WorkspaceID(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows the listed roles; super_admin always passes.
// It panics on an unknown role name since route tables are static.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		if !Known(r) {
			panic(fmt.Sprintf("rbac: unknown role %q", r))
		}
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if _, ok := allowedSet[role]; !ok && !IsSuperAdmin(role) {
			logger.FromGin(c).Warn("rbac denied", "role", role, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
