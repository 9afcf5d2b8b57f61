package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/google/uuid"
)

type grant struct {
	userId    persona.UserId
	expiresAt time.Time
}

type GrantStore struct {
	grants map[string]grant
	mutex  sync.Mutex
	now    func() time.Time
}

func NewGrantStore() *GrantStore {
	return &GrantStore{
		grants: map[string]grant{},
		now:    time.Now,
	}
}

var _ persona.GrantStore = (*GrantStore)(nil)

func (s *GrantStore) Issue(ctx context.Context, kind persona.GrantKind, userId persona.UserId, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.grants[string(kind)+":"+token] = grant{userId: userId, expiresAt: s.now().Add(ttl)}
	return token, nil
}

func (s *GrantStore) Redeem(ctx context.Context, kind persona.GrantKind, token string) (persona.UserId, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := string(kind) + ":" + token
	g, ok := s.grants[key]
	if !ok {
		return "", persona.ErrGrantNotFound
	}
	delete(s.grants, key)
	if !s.now().Before(g.expiresAt) {
		return "", persona.ErrGrantNotFound
	}
	return g.userId, nil
}

func (s *GrantStore) Revoke(ctx context.Context, kind persona.GrantKind, token string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.grants, string(kind)+":"+token)
	return nil
}
