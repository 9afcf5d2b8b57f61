package inmem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/buzkaaclicker/persona"
)

type AccountStore struct {
	accounts map[persona.UserId]persona.Account
	mutex    sync.RWMutex
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: map[persona.UserId]persona.Account{},
	}
}

var _ persona.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) Create(ctx context.Context, account persona.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return persona.NewError("accounts.create", persona.KindConflict, nil)
		}
	}
	if _, ok := s.accounts[account.Id]; ok {
		return persona.NewError("accounts.create", persona.KindConflict, nil)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.accounts[account.Id] = account
	return nil
}

func (s *AccountStore) ByEmail(ctx context.Context, email string) (persona.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return persona.Account{}, persona.NewError("accounts.by_email", persona.KindNotFound, nil)
}

func (s *AccountStore) ById(ctx context.Context, id persona.UserId) (persona.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return a, persona.NewError("accounts.by_id", persona.KindNotFound, nil)
	}
	return a, nil
}

func (s *AccountStore) Confirm(ctx context.Context, id persona.UserId, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return persona.NewError("accounts.confirm", persona.KindNotFound, nil)
	}
	a.ConfirmedAt = &at
	s.accounts[id] = a
	return nil
}
