package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/stretchr/testify/assert"
)

func TestGrantStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := NewGrantStore()
	token, err := store.Issue(ctx, persona.GrantRefresh, "U1", time.Hour)
	if !assert.NoError(err) {
		return
	}

	_, err = store.Redeem(ctx, persona.GrantConfirmEmail, token)
	assert.ErrorIs(err, persona.ErrGrantNotFound, "kinds do not mix")

	userId, err := store.Redeem(ctx, persona.GrantRefresh, token)
	assert.NoError(err)
	assert.Equal(persona.UserId("U1"), userId)

	_, err = store.Redeem(ctx, persona.GrantRefresh, token)
	assert.ErrorIs(err, persona.ErrGrantNotFound, "grants are single use")

	revoked, _ := store.Issue(ctx, persona.GrantRefresh, "U1", time.Hour)
	assert.NoError(store.Revoke(ctx, persona.GrantRefresh, revoked))
	_, err = store.Redeem(ctx, persona.GrantRefresh, revoked)
	assert.ErrorIs(err, persona.ErrGrantNotFound)
}

func TestGrantStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewGrantStore()
	store.now = func() time.Time { return now }

	token, _ := store.Issue(ctx, persona.GrantConfirmEmail, "U1", time.Minute)
	now = now.Add(time.Minute)
	_, err := store.Redeem(ctx, persona.GrantConfirmEmail, token)
	assert.ErrorIs(err, persona.ErrGrantNotFound)
}
