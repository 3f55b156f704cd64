package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Operator is someone allowed to query the reading history.
type Operator struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoginAt  null.Time `json:"last_login_at"`
}

// OperatorCredentialsDTO is the body of both /auth/register and /auth/login.
type OperatorCredentialsDTO struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type SessionDTO struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Operator    *Operator `json:"operator"`
}
