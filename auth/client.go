package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/buzkaaclicker/persona"
)

var ErrNotSignedIn = errors.New("not signed in")

// Client is the session provider handle of a single UI client. It owns the
// current session and notifies subscribers after every change.
type Client struct {
	service *Service
	now     func() time.Time

	// serializes session changes that call the service (sign in, refresh,
	// sign out) so a single use refresh grant is redeemed once
	changeMutex sync.Mutex

	mutex     sync.Mutex
	session   *persona.Session
	lastId    int
	listeners map[int]persona.SessionChangeFunc
}

var _ persona.SessionProvider = (*Client)(nil)

func NewClient(service *Service) *Client {
	return &Client{
		service:   service,
		now:       time.Now,
		listeners: map[int]persona.SessionChangeFunc{},
	}
}

// GetCurrentSession returns nil when signed out. An expired session is
// refreshed first.
func (c *Client) GetCurrentSession(ctx context.Context) (*persona.Session, error) {
	session := c.current()
	if session == nil || !session.Expired(c.now()) {
		return session, nil
	}

	c.changeMutex.Lock()
	defer c.changeMutex.Unlock()

	// a concurrent request may have refreshed or signed out meanwhile
	session = c.current()
	if session == nil || !session.Expired(c.now()) {
		return session, nil
	}
	err := c.refresh(ctx, *session)
	switch {
	case errors.Is(err, ErrInvalidGrant):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return c.current(), nil
}

func (c *Client) OnSessionChange(callback persona.SessionChangeFunc) func() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.lastId++
	id := c.lastId
	c.listeners[id] = callback
	return func() {
		c.mutex.Lock()
		defer c.mutex.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) SignIn(ctx context.Context, email string, password string) error {
	c.changeMutex.Lock()
	defer c.changeMutex.Unlock()

	session, err := c.service.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	c.replace(ctx, persona.EventSignedIn, &session)
	return nil
}

// SignUp discloses the new user only while its email awaits confirmation;
// otherwise the client is signed in right away.
func (c *Client) SignUp(ctx context.Context, email string, password string) (*persona.SignUpResult, error) {
	c.changeMutex.Lock()
	defer c.changeMutex.Unlock()

	user, session, err := c.service.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &persona.SignUpResult{User: &user}, nil
	}
	c.replace(ctx, persona.EventSignedIn, session)
	return &persona.SignUpResult{}, nil
}

func (c *Client) Confirm(ctx context.Context, token string) error {
	c.changeMutex.Lock()
	defer c.changeMutex.Unlock()

	session, err := c.service.Confirm(ctx, token)
	if err != nil {
		return err
	}
	c.replace(ctx, persona.EventSignedIn, &session)
	return nil
}

// Refresh rotates the session tokens. A refresh grant that is no longer valid
// signs the client out.
func (c *Client) Refresh(ctx context.Context) error {
	c.changeMutex.Lock()
	defer c.changeMutex.Unlock()

	current := c.current()
	if current == nil {
		return ErrNotSignedIn
	}
	return c.refresh(ctx, *current)
}

// refresh redeems the grant of current. The result is applied only while
// current is still the client session; otherwise the rotated grant is
// revoked and the newer session kept. Callers hold changeMutex.
func (c *Client) refresh(ctx context.Context, current persona.Session) error {
	session, err := c.service.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if !errors.Is(err, ErrInvalidGrant) {
			return err
		}
		if !c.setIf(current.RefreshToken, persona.EventSignedOut, nil) {
			return nil
		}
		return err
	}
	if !c.setIf(current.RefreshToken, persona.EventTokenRefreshed, &session) {
		c.revoke(ctx, session)
	}
	return nil
}

// SignOut of a signed out client is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	c.changeMutex.Lock()
	defer c.changeMutex.Unlock()

	current := c.current()
	if current == nil {
		return nil
	}

	if err := c.service.SignOut(ctx, *current); err != nil {
		return err
	}
	c.set(persona.EventSignedOut, nil)
	return nil
}

// replace switches to session and revokes the refresh grant of the session
// it replaces.
func (c *Client) replace(ctx context.Context, event persona.AuthEvent, session *persona.Session) {
	previous := c.current()
	c.set(event, session)
	if previous != nil && previous.RefreshToken != session.RefreshToken {
		c.revoke(ctx, *previous)
	}
}

func (c *Client) revoke(ctx context.Context, session persona.Session) {
	err := c.service.Grants.Revoke(ctx, persona.GrantRefresh, session.RefreshToken)
	if err != nil {
		c.service.log().WithError(err).WithField("user_id", session.UserId).
			Warnln("Could not revoke replaced refresh grant.")
	}
}

func (c *Client) current() *persona.Session {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return copySession(c.session)
}

func (c *Client) set(event persona.AuthEvent, session *persona.Session) {
	c.mutex.Lock()
	c.session = copySession(session)
	listeners := c.listenersLocked()
	c.mutex.Unlock()

	c.notify(listeners, event, session)
}

// setIf applies the change only while the client session still holds
// refreshToken.
func (c *Client) setIf(refreshToken string, event persona.AuthEvent, session *persona.Session) bool {
	c.mutex.Lock()
	if c.session == nil || c.session.RefreshToken != refreshToken {
		c.mutex.Unlock()
		return false
	}
	c.session = copySession(session)
	listeners := c.listenersLocked()
	c.mutex.Unlock()

	c.notify(listeners, event, session)
	return true
}

func (c *Client) listenersLocked() []persona.SessionChangeFunc {
	listeners := make([]persona.SessionChangeFunc, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func (c *Client) notify(listeners []persona.SessionChangeFunc, event persona.AuthEvent, session *persona.Session) {
	for _, l := range listeners {
		l(event, copySession(session))
	}
}

func copySession(session *persona.Session) *persona.Session {
	if session == nil {
		return nil
	}
	c := *session
	return &c
}
