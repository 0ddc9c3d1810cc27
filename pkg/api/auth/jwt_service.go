package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. Access tokens are short-lived; the refresh token outlives
// its access token by enough to cover offline clients for two days.
const (
	AccessTokenLifetime  = time.Hour
	RefreshTokenLifetime = 48 * time.Hour
)

// Common errors for JWT operations.
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrTokenMismatch       = errors.New("refresh token is bound to a different access token")
	ErrTokenSigningFailed  = errors.New("failed to sign token")
	ErrInvalidSecretLength = errors.New("JWT secret must be at least 32 characters")
)

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	// AccessToken is the short-lived token for API authorization.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived token bound to AccessToken.
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the access token expiry as ms since epoch.
	ExpiresAt int64 `json:"expires_at"`
}

// JWTService signs and validates the access/refresh token pair (HS256).
type JWTService struct {
	secret []byte
}

// NewJWTService creates a JWT service with the given HMAC secret.
func NewJWTService(secret string) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	return &JWTService{secret: []byte(secret)}, nil
}

// GenerateTokenPair mints a fresh pair for the user with iat = now.
func (s *JWTService) GenerateTokenPair(userID string) (*TokenPair, error) {
	now := time.Now().UnixMilli()

	access := &AccessClaims{
		IssuedAt:  now,
		ExpiresAt: now + AccessTokenLifetime.Milliseconds(),
		UserID:    userID,
	}
	accessToken, err := s.sign(access)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh := &RefreshClaims{
		IssuedAt:    now,
		ExpiresAt:   now + RefreshTokenLifetime.Milliseconds(),
		AccessToken: accessToken,
	}
	refreshToken, err := s.sign(refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    access.ExpiresAt,
	}, nil
}

func (s *JWTService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", ErrTokenSigningFailed
	}
	return signed, nil
}

// parse verifies the signature and decodes into claims. Time validation is
// deliberately skipped here; callers check the ms window themselves.
func (s *JWTService) parse(tokenString string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return ErrInvalidToken
	}
	return nil
}

// DecodeAccess verifies the signature of an access token without checking
// its validity window.
func (s *JWTService) DecodeAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeRefresh verifies the signature of a refresh token without checking
// its validity window.
func (s *JWTService) DecodeRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateAccess decodes an access token and checks it is currently valid.
func (s *JWTService) ValidateAccess(tokenString string) (*AccessClaims, error) {
	claims, err := s.DecodeAccess(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.ValidAt(time.Now().UnixMilli()) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}

// Refresh validates a presented (access, refresh) pair and mints a new one.
//
// Undecodable tokens return ErrInvalidToken. An expired refresh token
// returns ErrExpiredToken. A refresh token minted with a different access
// token returns ErrTokenMismatch. The access token itself may be expired;
// that is the normal refresh case.
func (s *JWTService) Refresh(accessToken, refreshToken string) (*TokenPair, error) {
	access, err := s.DecodeAccess(accessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	if !refresh.ValidAt(time.Now().UnixMilli()) {
		return nil, ErrExpiredToken
	}
	if refresh.AccessToken != accessToken {
		return nil, ErrTokenMismatch
	}

	return s.GenerateTokenPair(access.UserID)
}
