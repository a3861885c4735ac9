// Package auth issues and verifies the signed claims that prove a
// connection's user identity. A single process-wide secret signs both
// access and refresh tokens (HS256).
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rekew/web-dev-project/internal/domain"
)

var (
	// ErrInvalidToken covers every verification failure: malformed or
	// unsigned claims, expiry, wrong token type, or a user_id that no
	// longer resolves to a stored user.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the signed claim structure carried in every realtime payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Type   string `json:"type"` // "access" or "refresh"
}

// UserGetter resolves a user ID against the store.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Manager signs and verifies tokens.
type Manager struct {
	secret          []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string
	users           UserGetter
}

// NewManager creates a token manager bound to the given store.
func NewManager(secret string, accessDuration, refreshDuration time.Duration, issuer string, users UserGetter) *Manager {
	return &Manager{
		secret:          []byte(secret),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		issuer:          issuer,
		users:           users,
	}
}

// GenerateTokenPair creates access and refresh tokens for a user.
func (m *Manager) GenerateTokenPair(userID string) (accessToken, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = m.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessDuration)),
		},
		UserID: userID,
		Type:   tokenTypeAccess,
	})
	if err != nil {
		return "", "", err
	}

	refreshToken, err = m.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshDuration)),
		},
		UserID: userID,
		Type:   tokenTypeRefresh,
	})
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// Verify validates a signed access token and resolves it to the stored
// user it names. Any decode, signature, expiry, or lookup failure yields
// ErrInvalidToken; no distinction is surfaced to the caller.
func (m *Manager) Verify(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeAccess {
		return nil, ErrInvalidToken
	}

	user, err := m.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (m *Manager) Refresh(ctx context.Context, refreshTokenString string) (userID, accessToken, refreshToken string, err error) {
	claims, err := m.parse(refreshTokenString)
	if err != nil {
		return "", "", "", err
	}
	if claims.Type != tokenTypeRefresh {
		return "", "", "", ErrInvalidToken
	}

	if _, err := m.users.GetUserByID(ctx, claims.UserID); err != nil {
		return "", "", "", ErrInvalidToken
	}

	accessToken, refreshToken, err = m.GenerateTokenPair(claims.UserID)
	if err != nil {
		return "", "", "", err
	}
	return claims.UserID, accessToken, refreshToken, nil
}

func (m *Manager) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
