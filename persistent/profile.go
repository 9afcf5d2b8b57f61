package persistent

import (
	"context"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/uptrace/bun"
)

type Profile struct {
	bun.BaseModel `bun:"table:profile"`

	UserId    string    `bun:",pk"`
	Username  string    `bun:",notnull"`
	AvatarUrl *string   `bun:"avatar_url"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

func (p Profile) ToDomain() persona.Profile {
	return persona.Profile{
		UserId:    persona.UserId(p.UserId),
		Username:  p.Username,
		AvatarUrl: p.AvatarUrl,
		UpdatedAt: p.UpdatedAt,
	}
}

func profileModel(p persona.Profile) *Profile {
	return &Profile{
		UserId:    string(p.UserId),
		Username:  p.Username,
		AvatarUrl: p.AvatarUrl,
		UpdatedAt: p.UpdatedAt,
	}
}

// ProfileStore keeps one row per user, the primary key on user_id enforces it.
type ProfileStore struct {
	DB *bun.DB
}

var _ persona.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) Get(ctx context.Context, userId persona.UserId) (persona.Profile, error) {
	profile := new(Profile)
	err := s.DB.NewSelect().
		Model(profile).
		Where("user_id=?", string(userId)).
		Scan(ctx)
	if err != nil {
		return persona.Profile{}, classify("select profile", err)
	}
	return profile.ToDomain(), nil
}

func (s *ProfileStore) Insert(ctx context.Context, profile persona.Profile) error {
	_, err := s.DB.NewInsert().
		Model(profileModel(profile)).
		Exec(ctx)
	return classify("insert profile", err)
}

func (s *ProfileStore) Upsert(ctx context.Context, profile persona.Profile) error {
	_, err := s.DB.NewInsert().
		Model(profileModel(profile)).
		On("CONFLICT (user_id) DO UPDATE").
		Set("username=EXCLUDED.username").
		Set("avatar_url=EXCLUDED.avatar_url").
		Set("updated_at=EXCLUDED.updated_at").
		Exec(ctx)
	return classify("upsert profile", err)
}

func (s *ProfileStore) UpdateAvatarUrl(ctx context.Context, userId persona.UserId, avatarUrl string) error {
	res, err := s.DB.NewUpdate().
		Model((*Profile)(nil)).
		Set("avatar_url=?", avatarUrl).
		Set("updated_at=?", time.Now().UTC()).
		Where("user_id=?", string(userId)).
		Exec(ctx)
	if err != nil {
		return classify("update avatar url", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persona.NewError("update avatar url", persona.KindNotFound, nil)
	}
	return nil
}
