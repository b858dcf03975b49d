package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrTokenExpired = errors.New("token expired")

type UserClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// GenerateUserJWT issues a signed, time-limited token for the given user.
func GenerateUserJWT(userID uuid.UUID, expire time.Duration, key []byte) (string, error) {
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("generating user jwt token: %w", err)
	}
	return signed, nil
}

// ValidateUserJWT parses and verifies a token string, returning the user id
// it carries. Expired, malformed, or wrongly signed tokens all fail.
func ValidateUserJWT(tokenString string, key []byte) (uuid.UUID, error) {
	claims := new(UserClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("parsing jwt token: %w", err)
	}

	parsed, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid claims")
	}

	userID, err := uuid.Parse(parsed.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id in claims: %w", err)
	}
	return userID, nil
}
