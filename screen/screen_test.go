package screen

import (
	"context"
	"io"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/buzkaaclicker/persona/mock"
	"github.com/sirupsen/logrus"
)

func discardLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func signedOutProvider() *mock.SessionProvider {
	return &mock.SessionProvider{
		GetCurrentSessionFn: func(ctx context.Context) (*persona.Session, error) {
			return nil, nil
		},
		SignOutFn: func(ctx context.Context) error {
			return nil
		},
	}
}

func sessionFor(userId persona.UserId, email string) *persona.Session {
	return &persona.Session{
		UserId:      userId,
		Email:       email,
		AccessToken: "token-" + string(userId),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

const waitTimeout = 2 * time.Second

func waitFor(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(waitTimeout):
		return false
	}
}
