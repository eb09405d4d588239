package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/edudao/gatekeeper/internal/auth"
	"github.com/edudao/gatekeeper/pkg/errors"
	"github.com/edudao/gatekeeper/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxUserIDKey   = "userID"
	CtxSnapshotKey = "authzSnapshot"

	// TokenCookie lets page requests from a browser carry the bearer token.
	TokenCookie = "gatekeeper_token"
)

// Identify resolves the caller from a bearer token or the token cookie.
// Requests without credentials continue as the anonymous subject; a present
// but invalid token is rejected with 401.
func Identify(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}

// RequireIdentity rejects anonymous callers.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the identified subject, or "" for anonymous callers.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if len(header) >= 7 && strings.EqualFold(header[:7], "Bearer ") {
		token := strings.TrimSpace(header[7:])
		return token, token != ""
	}
	if header != "" {
		return header, true
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie), true
	}
	return "", false
}
