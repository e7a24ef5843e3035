package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/auth"
)

// TokenValidator is satisfied by *auth.JWTManager.
type TokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

// Authenticate requires a valid bearer access token and stores its claims on
// the gin context.
func Authenticate(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}

		claims, err := v.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token has expired"
			}
			abort(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequirePermission rejects callers whose role lacks p. It must run after
// Authenticate.
func RequirePermission(p domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !claims.Role.Can(p) {
			abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}

// Actor builds the service actor for the authenticated caller.
func Actor(c *gin.Context) domain.Actor {
	a := domain.Actor{IP: c.ClientIP(), RequestID: RequestIDFrom(c)}
	if claims, ok := ClaimsFrom(c); ok {
		a.UserID = claims.UserID
		a.Role = claims.Role
		a.FacilityID = claims.FacilityID
	}
	return a
}

// RequireRole admits only the listed roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "insufficient permissions")
	}
}
