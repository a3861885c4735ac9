package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/service"
	"github.com/rekew/web-dev-project/pkg/log"
	"github.com/rekew/web-dev-project/pkg/response"
)

const contextUserKey = "current_user"

// AuthMiddleware verifies the bearer token on REST routes and stores the
// resolved user on the request context.
func AuthMiddleware(verifier service.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "Missing bearer token")
			c.Abort()
			return
		}

		user, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		c.Set(contextUserKey, user)
		c.Set(log.FieldUserID, user.ID)
		c.Next()
	}
}

// currentUser fetches the authenticated user placed by AuthMiddleware.
func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
