// Package auth is the built-in session provider: password accounts, signed
// access tokens and rotating refresh grants.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "persona"

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrExpiredToken = errors.New("access token expired")
)

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Tokens signs and verifies HS256 access tokens.
type Tokens struct {
	Secret []byte
	TTL    time.Duration

	now func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{Secret: secret, TTL: ttl, now: time.Now}
}

func (t *Tokens) Issue(user persona.User) (token string, expiresAt time.Time, err error) {
	issuedAt := t.now()
	expiresAt = issuedAt.Add(t.TTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   string(user.Id),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify returns the claims of a valid token. Expired tokens fail with
// ErrExpiredToken, anything else with ErrInvalidToken.
func (t *Tokens) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.Secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	case !token.Valid || claims.Subject == "":
		return nil, ErrInvalidToken
	}
	return claims, nil
}
