package auth

import (
	"testing"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestTokensRoundTrip(t *testing.T) {
	assert := assert.New(t)

	tokens := NewTokens([]byte("secret"), 15*time.Minute)
	now := time.Now().Truncate(time.Second)
	tokens.now = func() time.Time { return now }

	raw, expiresAt, err := tokens.Issue(persona.User{Id: "U1", Email: "a@b.com"})
	if !assert.NoError(err) {
		return
	}
	assert.Equal(now.Add(15*time.Minute), expiresAt)

	claims, err := tokens.Verify(raw)
	if !assert.NoError(err) {
		return
	}
	assert.Equal("U1", claims.Subject)
	assert.Equal("a@b.com", claims.Email)
	assert.NotEmpty(claims.ID)

	now = now.Add(15 * time.Minute)
	_, err = tokens.Verify(raw)
	assert.ErrorIs(err, ErrExpiredToken)
}

func TestTokensRejectForeign(t *testing.T) {
	assert := assert.New(t)

	tokens := NewTokens([]byte("secret"), time.Minute)
	other := NewTokens([]byte("other secret"), time.Minute)

	raw, _, err := other.Issue(persona.User{Id: "U1"})
	if !assert.NoError(err) {
		return
	}
	_, err = tokens.Verify(raw)
	assert.ErrorIs(err, ErrInvalidToken)

	_, err = tokens.Verify("not a token")
	assert.ErrorIs(err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "U1", Issuer: tokenIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if !assert.NoError(err) {
		return
	}
	_, err = tokens.Verify(unsigned)
	assert.ErrorIs(err, ErrInvalidToken)
}
