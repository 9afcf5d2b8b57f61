package persistent

import (
	"context"
	crand "crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/tidwall/buntdb"
)

// GrantStore keeps single use tokens in buntdb under
// "grant:<kind>:<token>", expiring with their TTL.
type GrantStore struct {
	Buntdb *buntdb.DB
}

var _ persona.GrantStore = (*GrantStore)(nil)

func (s *GrantStore) CreateIndexes() error {
	return s.Buntdb.CreateIndex("grants", "grant:*", buntdb.IndexString)
}

func grantKey(kind persona.GrantKind, token string) string {
	return "grant:" + string(kind) + ":" + token
}

func (s *GrantStore) Issue(ctx context.Context, kind persona.GrantKind, userId persona.UserId, ttl time.Duration) (string, error) {
	token, err := generateGrantToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, replaced, err := tx.Set(grantKey(kind, token), string(userId), &buntdb.SetOptions{Expires: true, TTL: ttl})
		if err != nil {
			return fmt.Errorf("set grant: %w", err)
		}
		if replaced {
			return fmt.Errorf("grant token collision")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("bunt update: %w", err)
	}
	return token, nil
}

func (s *GrantStore) Redeem(ctx context.Context, kind persona.GrantKind, token string) (persona.UserId, error) {
	var userId string
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		var err error
		userId, err = tx.Delete(grantKey(kind, token))
		return err
	})
	switch {
	case errors.Is(err, buntdb.ErrNotFound):
		return "", persona.ErrGrantNotFound
	case err != nil:
		return "", fmt.Errorf("bunt update: %w", err)
	}
	return persona.UserId(userId), nil
}

func (s *GrantStore) Revoke(ctx context.Context, kind persona.GrantKind, token string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(grantKey(kind, token))
		return err
	})
	if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

// Count returns the number of live grants of every kind.
func (s *GrantStore) Count() (int, error) {
	count := 0
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("grants", func(key, value string) bool {
			count++
			return true
		})
	})
	if err != nil {
		return 0, fmt.Errorf("bunt view: %w", err)
	}
	return count, nil
}

func generateGrantToken() (string, error) {
	const tokenBytes = 48
	rawToken := make([]byte, tokenBytes)
	if _, err := crand.Read(rawToken); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	// url alphabet: safe in links and free of the ':' key separator
	return base64.RawURLEncoding.EncodeToString(rawToken), nil
}
