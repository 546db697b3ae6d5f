package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"branch-pos/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines what is inside the token (The "ID Card")
type Claims struct {
	UserID   uint        `json:"user_id"`
	Role     models.Role `json:"role"`
	BranchID *uint       `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens with a fixed secret and lifetime.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long an issued token stays valid.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// GenerateToken creates a signed JWT for a user
func (m *TokenManager) GenerateToken(user *models.User) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:   user.ID,
		Role:     user.Role,
		BranchID: user.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken checks if a token is fake or expired
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
