package mock

import (
	"context"
	"sync"

	"github.com/buzkaaclicker/persona"
)

// SessionProvider records change subscribers so tests can push events with
// Emit.
type SessionProvider struct {
	GetCurrentSessionFn func(ctx context.Context) (*persona.Session, error)

	SignInFn func(ctx context.Context, email string, password string) error

	SignUpFn func(ctx context.Context, email string, password string) (*persona.SignUpResult, error)

	SignOutFn func(ctx context.Context) error

	mutex     sync.Mutex
	lastId    int
	listeners map[int]persona.SessionChangeFunc
}

var _ persona.SessionProvider = (*SessionProvider)(nil)

func (p *SessionProvider) GetCurrentSession(ctx context.Context) (*persona.Session, error) {
	return p.GetCurrentSessionFn(ctx)
}

func (p *SessionProvider) SignIn(ctx context.Context, email string, password string) error {
	return p.SignInFn(ctx, email, password)
}

func (p *SessionProvider) SignUp(ctx context.Context, email string, password string) (*persona.SignUpResult, error) {
	return p.SignUpFn(ctx, email, password)
}

func (p *SessionProvider) SignOut(ctx context.Context) error {
	return p.SignOutFn(ctx)
}

func (p *SessionProvider) OnSessionChange(callback persona.SessionChangeFunc) func() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.listeners == nil {
		p.listeners = map[int]persona.SessionChangeFunc{}
	}
	p.lastId++
	id := p.lastId
	p.listeners[id] = callback
	return func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		delete(p.listeners, id)
	}
}

func (p *SessionProvider) Emit(event persona.AuthEvent, session *persona.Session) {
	p.mutex.Lock()
	listeners := make([]persona.SessionChangeFunc, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mutex.Unlock()

	for _, l := range listeners {
		l(event, session)
	}
}

func (p *SessionProvider) Subscribers() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.listeners)
}
