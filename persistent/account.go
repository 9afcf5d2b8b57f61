package persistent

import (
	"context"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/uptrace/bun"
)

type Account struct {
	bun.BaseModel `bun:"table:account"`

	Id           string     `bun:",pk"`
	Email        string     `bun:",notnull,unique"`
	PasswordHash string     `bun:",notnull"`
	ConfirmedAt  *time.Time `bun:"confirmed_at"`
	CreatedAt    time.Time  `bun:",nullzero,notnull,default:current_timestamp"`
}

func (a Account) ToDomain() persona.Account {
	return persona.Account{
		User: persona.User{
			Id:          persona.UserId(a.Id),
			Email:       a.Email,
			ConfirmedAt: a.ConfirmedAt,
		},
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
	}
}

type AccountStore struct {
	DB *bun.DB
}

var _ persona.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) Create(ctx context.Context, account persona.Account) error {
	_, err := s.DB.NewInsert().
		Model(&Account{
			Id:           string(account.Id),
			Email:        account.Email,
			PasswordHash: account.PasswordHash,
			ConfirmedAt:  account.ConfirmedAt,
			CreatedAt:    account.CreatedAt,
		}).
		Exec(ctx)
	return classify("insert account", err)
}

func (s *AccountStore) ByEmail(ctx context.Context, email string) (persona.Account, error) {
	account := new(Account)
	err := s.DB.NewSelect().
		Model(account).
		Where("lower(email)=lower(?)", email).
		Scan(ctx)
	if err != nil {
		return persona.Account{}, classify("select account by email", err)
	}
	return account.ToDomain(), nil
}

func (s *AccountStore) ById(ctx context.Context, id persona.UserId) (persona.Account, error) {
	account := new(Account)
	err := s.DB.NewSelect().
		Model(account).
		Where("id=?", string(id)).
		Scan(ctx)
	if err != nil {
		return persona.Account{}, classify("select account by id", err)
	}
	return account.ToDomain(), nil
}

func (s *AccountStore) Confirm(ctx context.Context, id persona.UserId, at time.Time) error {
	res, err := s.DB.NewUpdate().
		Model((*Account)(nil)).
		Set("confirmed_at=?", at).
		Where("id=?", string(id)).
		Exec(ctx)
	if err != nil {
		return classify("confirm account", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persona.NewError("confirm account", persona.KindNotFound, nil)
	}
	return nil
}
