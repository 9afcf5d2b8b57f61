package mock

import (
	"context"

	"github.com/buzkaaclicker/persona"
)

type ProfileStore struct {
	GetFn func(ctx context.Context, userId persona.UserId) (persona.Profile, error)

	InsertFn func(ctx context.Context, profile persona.Profile) error

	UpsertFn func(ctx context.Context, profile persona.Profile) error

	UpdateAvatarUrlFn func(ctx context.Context, userId persona.UserId, avatarUrl string) error
}

func (s ProfileStore) Get(ctx context.Context, userId persona.UserId) (persona.Profile, error) {
	return s.GetFn(ctx, userId)
}

func (s ProfileStore) Insert(ctx context.Context, profile persona.Profile) error {
	return s.InsertFn(ctx, profile)
}

func (s ProfileStore) Upsert(ctx context.Context, profile persona.Profile) error {
	return s.UpsertFn(ctx, profile)
}

func (s ProfileStore) UpdateAvatarUrl(ctx context.Context, userId persona.UserId, avatarUrl string) error {
	return s.UpdateAvatarUrlFn(ctx, userId, avatarUrl)
}
