package handler

import (
	"errors"
	"log"
	"net/http"
	"servidor_ocr/internal/api/middleware"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(as *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

func bindCredentials(c *gin.Context) (domain.OperatorCredentialsDTO, bool) {
	var creds domain.OperatorCredentialsDTO
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials payload", "details": err.Error()})
		return creds, false
	}
	return creds, true
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	creds, ok := bindCredentials(c)
	if !ok {
		return
	}

	op, err := h.authService.Register(c.Request.Context(), creds)
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		log.Printf("AuthHandler: register '%s': %v", creds.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not register operator"})
	default:
		c.JSON(http.StatusCreated, op)
	}
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	creds, ok := bindCredentials(c)
	if !ok {
		return
	}

	session, err := h.authService.Login(c.Request.Context(), creds)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case err != nil:
		log.Printf("AuthHandler: login '%s': %v", creds.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
	default:
		c.JSON(http.StatusOK, session)
	}
}

// GET /api/v1/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.Operator(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":   claims.Username,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt,
	})
}
