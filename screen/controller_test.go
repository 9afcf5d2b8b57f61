package screen

import (
	"context"
	"testing"

	"github.com/buzkaaclicker/persona"
	"github.com/buzkaaclicker/persona/inmem"
	"github.com/stretchr/testify/assert"
)

func TestControllerStartsAnonymous(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	provider := signedOutProvider()
	c := NewController(provider, inmem.NewProfileStore(), inmem.NewBlobStore("", persona.AvatarBucket), discardLog())
	assert.Equal(ScreenLoading, c.Screen())

	if !assert.NoError(c.Start(ctx)) {
		return
	}
	assert.Equal(StateAnonymous, c.State())
	assert.Equal(ScreenAuth, c.Screen())
	assert.Nil(c.Session())
	assert.Equal(1, provider.Subscribers())

	// second start must not subscribe twice
	assert.NoError(c.Start(ctx))
	assert.Equal(1, provider.Subscribers())
}

func TestControllerStartsAuthenticated(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	provider := signedOutProvider()
	provider.GetCurrentSessionFn = func(ctx context.Context) (*persona.Session, error) {
		return sessionFor("U1", "a@b.com"), nil
	}
	c := NewController(provider, inmem.NewProfileStore(), inmem.NewBlobStore("", persona.AvatarBucket), discardLog())
	if !assert.NoError(c.Start(ctx)) {
		return
	}
	assert.Equal(ScreenProfile, c.Screen())
	assert.Equal(persona.UserId("U1"), c.Profile.State().UserId)
	assert.Equal("a@b.com", c.Profile.State().Email)
}

func TestControllerLastWriterWins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	provider := signedOutProvider()
	profiles := inmem.NewProfileStore()
	c := NewController(provider, profiles, inmem.NewBlobStore("", persona.AvatarBucket), discardLog())
	if !assert.NoError(c.Start(ctx)) {
		return
	}

	provider.Emit(persona.EventSignedIn, sessionFor("U1", "a@b.com"))
	assert.Equal(ScreenProfile, c.Screen())
	c.Profile.EnsureLoaded(ctx)
	assert.Equal("a", c.Profile.State().Username)

	// a token refresh for the same identity keeps local edits
	c.Profile.SetUsername("edited")
	refreshed := sessionFor("U1", "a@b.com")
	refreshed.AccessToken = "refreshed"
	provider.Emit(persona.EventTokenRefreshed, refreshed)
	assert.Equal("edited", c.Profile.State().Username)
	assert.Equal("refreshed", c.Session().AccessToken)

	// a different identity re-initializes the profile screen
	provider.Emit(persona.EventSignedIn, sessionFor("U2", "x@y.com"))
	state := c.Profile.State()
	assert.Equal(persona.UserId("U2"), state.UserId)
	assert.Equal("", state.Username)
	assert.False(state.Loaded)

	provider.Emit(persona.EventSignedOut, nil)
	assert.Equal(ScreenAuth, c.Screen())
	assert.Equal(persona.UserId(""), c.Profile.State().UserId)

	// signing back in with the same identity loads again
	provider.Emit(persona.EventSignedIn, sessionFor("U1", "a@b.com"))
	c.Profile.EnsureLoaded(ctx)
	assert.Equal("a", c.Profile.State().Username)
	assert.Equal(2, profiles.Len())
}

func TestControllerEventDuringInitialQuery(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	provider := signedOutProvider()
	provider.GetCurrentSessionFn = func(ctx context.Context) (*persona.Session, error) {
		provider.Emit(persona.EventSignedIn, sessionFor("U1", "a@b.com"))
		return nil, nil
	}
	c := NewController(provider, inmem.NewProfileStore(), inmem.NewBlobStore("", persona.AvatarBucket), discardLog())
	if !assert.NoError(c.Start(ctx)) {
		return
	}
	assert.Equal(StateAuthenticated, c.State(), "initial query result must not override a newer event")
}

func TestControllerClose(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	provider := signedOutProvider()
	c := NewController(provider, inmem.NewProfileStore(), inmem.NewBlobStore("", persona.AvatarBucket), discardLog())
	if !assert.NoError(c.Start(ctx)) {
		return
	}
	c.Close()
	assert.Equal(0, provider.Subscribers())

	provider.Emit(persona.EventSignedIn, sessionFor("U1", "a@b.com"))
	assert.Equal(StateAnonymous, c.State())
}
