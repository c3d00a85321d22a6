package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"secureshare/models"
	"secureshare/utils"
)

// TokenValidator verifies bearer tokens issued by the identity provider.
type TokenValidator interface {
	ValidateToken(token string) (*utils.Claims, error)
}

// AuthMiddleware requires a valid bearer token and stores the principal in
// the context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, "Authorization header required")
			c.Abort()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		utils.SetPrincipalInContext(c, models.NewPrincipal(claims.UserID, claims.Role))
		c.Set("token_claims", claims)

		c.Next()
	}
}

// OptionalAuthMiddleware attaches the principal when a valid token is sent
// and lets anonymous requests through otherwise. A bad token is treated as
// no token.
func OptionalAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		utils.SetPrincipalInContext(c, models.NewPrincipal(claims.UserID, claims.Role))
		c.Set("token_claims", claims)
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := utils.GetPrincipalFromContext(c)
		if !exists {
			utils.UnauthorizedResponse(c, "Authentication required")
			c.Abort()
			return
		}

		if !principal.Admin {
			utils.ForbiddenResponse(c, "Administrator role required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
