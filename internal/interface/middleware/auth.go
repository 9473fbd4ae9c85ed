package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

// CtxUserIDKey is the gin context key carrying the authenticated user ID.
// It is set only by Auth; handlers read it and never re-verify the token.
const CtxUserIDKey = "userID"

// bearerToken extracts the credential from an Authorization: Bearer header.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth validates the bearer token and injects the user ID into the context.
// Missing, malformed, tampered, and expired tokens are all rejected with 401
// before any handler runs.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			msg := "Not authorized to access this route"
			if errors.Is(err, helpers.ErrTokenExpired) {
				msg = "Token expired"
			}
			response.AbortFail(c, http.StatusUnauthorized, msg)
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}
