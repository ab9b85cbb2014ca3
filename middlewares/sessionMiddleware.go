package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/shopledger_backend/config"
	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/gin-gonic/gin"
)

// Session is what Login stores in Redis under "Token:<token>". Every request
// that presents the token gets these identities copied into its context.
type Session struct {
	UserId     int    `json:"user_id"`
	BusinessId string `json:"business_id"`
	Username   string `json:"username"`
}

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		// Reject forged or expired tokens before touching the session store.
		if _, err := utils.JwtValidate(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "unauthorized", "message": "session expired or invalid"}})
			c.Abort()
			return
		}
		var session Session
		exists, err := config.GetRedisObject("Token:"+token, &session)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "unauthorized", "message": "session expired or invalid"}})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUserIdInContext(ctx, session.UserId)
		ctx = utils.SetBusinessIdInContext(ctx, session.BusinessId)
		ctx = utils.SetUsernameInContext(ctx, session.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth guards route groups that need an authenticated business scope.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context())
		if !ok || businessId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "unauthorized", "message": "authentication required"}})
			c.Abort()
			return
		}
		c.Next()
	}
}
