// Package auth issues and verifies the HS256 access tokens carried in the
// access_token metadata header.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the user id and the moment the user last proved their
// password. AuthTime survives token refreshes, so it ages even while the
// session stays alive.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	AuthTime int64  `json:"auth_time"`
}

// AuthenticatedAt returns AuthTime as a time.Time.
func (c *Claims) AuthenticatedAt() time.Time {
	return time.Unix(c.AuthTime, 0)
}

func GenerateToken(userID string, authTime time.Time, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:   userID,
		AuthTime: authTime.Unix(),
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString. Expired tokens yield common.ErrTokenExpired,
// anything else that fails verification yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
