package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/repository"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrUserAlreadyExists = errors.New("username already exists")
var ErrTokenInvalid = errors.New("token is invalid or expired")

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

const tokenIssuer = "servidor-ocr"

// OperatorClaims is the JWT payload handed to operators on login.
type OperatorClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	operators repository.OperatorRepository
	secret    []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(operators repository.OperatorRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		operators: operators,
		secret:    []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Register creates an operator account. The first account ever created is
// given the admin role so a fresh install can be bootstrapped.
func (s *AuthService) Register(ctx context.Context, dto domain.OperatorCredentialsDTO) (*domain.Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("AuthService.Register: hashing password: %w", err)
	}

	op := &domain.Operator{
		Username:     dto.Username,
		PasswordHash: string(hash),
		Role:         RoleOperator,
	}
	if err := s.operators.Create(ctx, op, RoleAdmin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("AuthService.Register: %w", err)
	}
	log.Printf("AuthService: operator '%s' registered with role %s", op.Username, op.Role)
	return op, nil
}

func (s *AuthService) Login(ctx context.Context, dto domain.OperatorCredentialsDTO) (*domain.SessionDTO, error) {
	op, err := s.operators.FindByUsername(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("AuthService.Login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := OperatorClaims{
		Username: op.Username,
		Role:     op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(op.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("AuthService.Login: signing token: %w", err)
	}

	if err := s.operators.TouchLastLogin(ctx, op.ID, now.UTC()); err != nil {
		log.Printf("AuthService: could not record login of '%s': %v", op.Username, err)
	}

	return &domain.SessionDTO{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
		Operator:    op,
	}, nil
}

// ParseToken validates an access token issued by Login.
func (s *AuthService) ParseToken(tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expired", ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Username == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing operator claims", ErrTokenInvalid)
	}
	return claims, nil
}
