package middleware

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/rautatech/catalog/internal/auth"
	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/errors"
	"github.com/rautatech/catalog/pkg/response"
)

const (
	CtxClaimsKey = "sessionClaims"
	CtxUserIDKey = "userID"
	CtxUserKey   = "currentUser"
)

// SessionAuth enforces cookie-based session authentication. The user record
// is resolved from the database on every request so role changes and
// deletions take effect immediately, even while old tokens remain valid.
// Any failure yields 403: a missing or broken session is a permission
// problem, not a challenge to retry credentials.
func SessionAuth(sessions *iauth.SessionService, users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := iauth.ReadSessionCookie(c.Request)
		if token == "" {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		claims, err := sessions.Verify(token)
		if err != nil {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			// Deleted accounts carry valid tokens until expiry; treat them
			// the same as no session.
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxUserKey, user)

		c.Next()
	}
}

// RequireAdmin allows only admin accounts past. It must run after
// SessionAuth; the role comes from the freshly resolved user record, never
// from token claims.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get(CtxUserKey)
		if !ok {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		user, ok := value.(*models.User)
		if !ok || !user.IsAdmin() {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
