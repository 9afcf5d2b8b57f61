package inmem

import (
	"context"
	"sync"

	"github.com/buzkaaclicker/persona"
)

// ProfileStore enforces one profile per user id, reporting duplicate inserts
// as KindConflict.
type ProfileStore struct {
	profiles map[persona.UserId]persona.Profile
	mutex    sync.RWMutex
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: map[persona.UserId]persona.Profile{},
	}
}

var _ persona.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) Get(ctx context.Context, userId persona.UserId) (persona.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.profiles[userId]
	if !ok {
		return persona.Profile{}, persona.NewError("profiles.get", persona.KindNotFound, nil)
	}
	return clone(p), nil
}

func (s *ProfileStore) Insert(ctx context.Context, profile persona.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.profiles[profile.UserId]; ok {
		return persona.NewError("profiles.insert", persona.KindConflict, nil)
	}
	s.profiles[profile.UserId] = clone(profile)
	return nil
}

func (s *ProfileStore) Upsert(ctx context.Context, profile persona.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.profiles[profile.UserId] = clone(profile)
	return nil
}

func (s *ProfileStore) UpdateAvatarUrl(ctx context.Context, userId persona.UserId, avatarUrl string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p, ok := s.profiles[userId]
	if !ok {
		return persona.NewError("profiles.update_avatar_url", persona.KindNotFound, nil)
	}
	p.AvatarUrl = &avatarUrl
	s.profiles[userId] = p
	return nil
}

func (s *ProfileStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.profiles)
}

func (s *ProfileStore) UserIds() []persona.UserId {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ids := make([]persona.UserId, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	return ids
}

func clone(p persona.Profile) persona.Profile {
	if p.AvatarUrl != nil {
		url := *p.AvatarUrl
		p.AvatarUrl = &url
	}
	return p
}
