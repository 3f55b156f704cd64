package middleware

import (
	"log"
	"net/http"
	"servidor_ocr/internal/service"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

const operatorKey = "operator"

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate requires "Authorization: Bearer <token>" and stores the
// operator claims in the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or malformed bearer token"})
			return
		}

		claims, err := m.authService.ParseToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "details": err.Error()})
			return
		}

		c.Set(operatorKey, claims)
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Operator(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		if !slices.Contains(roles, claims.Role) {
			log.Printf("AuthMiddleware: '%s' with role %s denied %s", claims.Username, claims.Role, c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

// Operator returns the claims stored by Authenticate.
func Operator(c *gin.Context) (*service.OperatorClaims, bool) {
	v, ok := c.Get(operatorKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*service.OperatorClaims)
	return claims, ok
}
