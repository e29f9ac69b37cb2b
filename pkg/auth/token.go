package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token fails signature or claim validation
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is past its expiry
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the JWT claims carried by Spacefy access tokens
type Claims struct {
	UserID   string `json:"userId"`
	RoleID   string `json:"roleId"`
	RoleName string `json:"roleName,omitempty"`
	// Roles is the claim name used by tokens issued before the roleName
	// rename. Verify falls back to it when RoleName is empty.
	Roles string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HMAC-signed JWTs
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager with the given signing secret
// and token lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the principal
func (m *TokenManager) Issue(p *Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   p.UserID,
		RoleID:   p.RoleID,
		RoleName: p.RoleName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token signature and expiry and returns the
// principal. Legacy tokens carrying the roles claim instead of roleName
// are normalized.
func (m *TokenManager) Verify(tokenString string) (*Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	roleName := claims.RoleName
	if roleName == "" {
		roleName = claims.Roles
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId claim", ErrInvalidToken)
	}

	return &Principal{
		UserID:   claims.UserID,
		RoleID:   claims.RoleID,
		RoleName: roleName,
	}, nil
}

// ExpiresAt returns the expiry of a token without validating it. Used
// when blacklisting a token on logout so the blacklist row can be purged
// once the token would have expired anyway.
func (m *TokenManager) ExpiresAt(tokenString string) time.Time {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Now().Add(m.ttl)
	}
	return claims.ExpiresAt.Time
}
