package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/buzkaaclicker/persona/inmem"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	service    *Service
	accounts   *inmem.AccountStore
	grants     *inmem.GrantStore
	activities *inmem.ActivityStore

	mutex sync.Mutex
	sent  map[string]string
}

func newTestEnv(requireConfirmation bool) *testEnv {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	env := &testEnv{
		accounts:   inmem.NewAccountStore(),
		grants:     inmem.NewGrantStore(),
		activities: inmem.NewActivityStore(),
		sent:       map[string]string{},
	}
	env.service = &Service{
		Accounts:            env.accounts,
		Grants:              env.grants,
		Activities:          env.activities,
		Tokens:              NewTokens([]byte("test-secret"), time.Hour),
		Log:                 log,
		RequireConfirmation: requireConfirmation,
		HashCost:            bcrypt.MinCost,
		SendConfirmation: func(ctx context.Context, user persona.User, token string) error {
			env.mutex.Lock()
			defer env.mutex.Unlock()
			env.sent[user.Email] = token
			return nil
		},
	}
	return env
}

func (e *testEnv) confirmationFor(email string) string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.sent[email]
}

func (e *testEnv) activityNames(t *testing.T, userId persona.UserId) []string {
	logs, err := e.activities.ByUserId(context.Background(), userId)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(logs))
	for i, l := range logs {
		names[len(logs)-1-i] = l.Name
	}
	return names
}

type recordedEvent struct {
	event   persona.AuthEvent
	session *persona.Session
}

type recorder struct {
	mutex  sync.Mutex
	events []recordedEvent
}

func (r *recorder) record(event persona.AuthEvent, session *persona.Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, recordedEvent{event, session})
}

func (r *recorder) all() []recordedEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]recordedEvent(nil), r.events...)
}
