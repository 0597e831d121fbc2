package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// Context keys populated by Authenticate.
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextUserName = "user_name"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Authenticate verifies the bearer token and stores the caller's identity on
// the request context.
func Authenticate(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Authorization header required"))
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Bearer token required"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserName, claims.Name)
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not in the allowed set. The
// pseudo-role "SELF" additionally admits a caller whose id equals the :id
// path parameter.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowSelf := false
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, role := range roles {
		if role == "SELF" {
			allowSelf = true
			continue
		}
		allowed[models.UserRole(role)] = true
	}

	return func(c *gin.Context) {
		role, id := CallerIdentity(c)
		if allowed[role] {
			c.Next()
			return
		}
		if allowSelf && id != "" && id == c.Param("id") {
			c.Next()
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Insufficient permissions"))
		c.Abort()
	}
}

// CallerIdentity returns the authenticated caller's role and id.
func CallerIdentity(c *gin.Context) (models.UserRole, string) {
	id, _ := c.Get(ContextUserID)
	role, _ := c.Get(ContextUserRole)
	userID, _ := id.(string)
	userRole, _ := role.(models.UserRole)
	return userRole, userID
}
