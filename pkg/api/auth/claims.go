// Package auth implements the access/refresh token pair.
//
// Claims carry millisecond epoch timestamps, not the RFC 7519 second-based
// ones, so tokens stay compatible with existing clients. Validation is done
// manually against the ms values; the library only verifies the signature.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the claim set of an access token.
type AccessClaims struct {
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	UserID    string `json:"user_id"`
}

// RefreshClaims is the claim set of a refresh token. It embeds the exact
// access token it was minted with, which makes the pair replay-resistant:
// a refresh token is useless with any other access token.
type RefreshClaims struct {
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
	AccessToken string `json:"access_token"`
}

// ValidAt reports whether the token is inside its validity window at the
// given ms-epoch instant. iat is inclusive, exp is exclusive at the top.
func (c *AccessClaims) ValidAt(nowMillis int64) bool {
	return nowMillis >= c.IssuedAt && nowMillis <= c.ExpiresAt
}

// ValidAt reports whether the refresh token is inside its validity window.
func (c *RefreshClaims) ValidAt(nowMillis int64) bool {
	return nowMillis >= c.IssuedAt && nowMillis <= c.ExpiresAt
}

// jwt.Claims implementation. The ms values are converted so the library sees
// correct instants, but validation is disabled at parse time and done by
// ValidAt instead.

func (c *AccessClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.ExpiresAt)), nil
}

func (c *AccessClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAt)), nil
}

func (c *AccessClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *AccessClaims) GetIssuer() (string, error)              { return "", nil }
func (c *AccessClaims) GetSubject() (string, error)             { return c.UserID, nil }
func (c *AccessClaims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

func (c *RefreshClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.ExpiresAt)), nil
}

func (c *RefreshClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAt)), nil
}

func (c *RefreshClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *RefreshClaims) GetIssuer() (string, error)              { return "", nil }
func (c *RefreshClaims) GetSubject() (string, error)             { return "", nil }
func (c *RefreshClaims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }
