package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/pkg/auth"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/httputil"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

const ContextClaims = "claims"

type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
	logger *logger.Logger
}

func NewAuthMiddleware(tokens TokenValidator, logger *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Authenticate verifies the bearer token and stores its claims on the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			c.Abort()
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			m.logger.Debug("Rejected access token", "error", err.Error(), "path", c.Request.URL.Path)
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			c.Abort()
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds one of roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			c.Abort()
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		httputil.RespondWithError(c, apperrors.Forbidden("insufficient role"))
		c.Abort()
	}
}

func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
