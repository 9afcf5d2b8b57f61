package persistent

import (
	"context"
	"testing"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/buntdb"
)

func openTestGrants(t *testing.T) *GrantStore {
	bdb, err := buntdb.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = bdb.Close() })

	store := &GrantStore{Buntdb: bdb}
	if err := store.CreateIndexes(); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestGrantStoreRedeem(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := openTestGrants(t)

	token, err := store.Issue(ctx, persona.GrantRefresh, "U1", time.Hour)
	if !assert.NoError(err) {
		return
	}
	assert.NotContains(token, ":")
	count, _ := store.Count()
	assert.Equal(1, count)

	_, err = store.Redeem(ctx, persona.GrantConfirmEmail, token)
	assert.ErrorIs(err, persona.ErrGrantNotFound)

	userId, err := store.Redeem(ctx, persona.GrantRefresh, token)
	assert.NoError(err)
	assert.Equal(persona.UserId("U1"), userId)

	_, err = store.Redeem(ctx, persona.GrantRefresh, token)
	assert.ErrorIs(err, persona.ErrGrantNotFound)
	count, _ = store.Count()
	assert.Equal(0, count)
}

func TestGrantStoreRevokeAndExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := openTestGrants(t)

	token, err := store.Issue(ctx, persona.GrantRefresh, "U1", time.Hour)
	if !assert.NoError(err) {
		return
	}
	assert.NoError(store.Revoke(ctx, persona.GrantRefresh, token))
	assert.NoError(store.Revoke(ctx, persona.GrantRefresh, token), "revoking twice is fine")
	_, err = store.Redeem(ctx, persona.GrantRefresh, token)
	assert.ErrorIs(err, persona.ErrGrantNotFound)

	short, err := store.Issue(ctx, persona.GrantConfirmEmail, "U1", 10*time.Millisecond)
	if !assert.NoError(err) {
		return
	}
	time.Sleep(50 * time.Millisecond)
	_, err = store.Redeem(ctx, persona.GrantConfirmEmail, short)
	assert.ErrorIs(err, persona.ErrGrantNotFound)
}
