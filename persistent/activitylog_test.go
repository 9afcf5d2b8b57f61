package persistent

import (
	"context"
	"testing"

	"github.com/buzkaaclicker/persona"
	"github.com/stretchr/testify/assert"
)

func TestActivityStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := &ActivityStore{DB: openTestDB(t)}

	const uid = persona.UserId("U1")

	assert.NoError(store.AddLog(ctx, uid, persona.Activity{Name: persona.ActivitySessionCreated}))
	assert.NoError(store.AddLog(ctx, uid, persona.Activity{Name: persona.ActivitySignedOut,
		Data: map[string]interface{}{"jestem03": "albo96"}}))
	assert.NoError(store.AddLog(ctx, "U2", persona.Activity{Name: persona.ActivitySignedUp}))

	logs, err := store.ByUserId(ctx, uid)
	if !assert.NoError(err) {
		return
	}
	if !assert.Equal(2, len(logs)) {
		return
	}
	assert.Equal(persona.ActivitySignedOut, logs[0].Name)
	assert.Equal(map[string]interface{}{"jestem03": "albo96"}, logs[0].Data)
	assert.Equal(persona.ActivitySessionCreated, logs[1].Name)
	assert.Equal(uid, logs[1].UserId)
	assert.Greater(logs[0].Id, logs[1].Id)
}
