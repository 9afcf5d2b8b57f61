package screen

import (
	"context"
	"sync"

	"github.com/buzkaaclicker/persona"
	"github.com/sirupsen/logrus"
)

type State uint8

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

type Screen uint8

const (
	ScreenLoading Screen = iota
	ScreenAuth
	ScreenProfile
)

// Controller owns the session of one client and picks the screen to render.
// Each change notification replaces the session wholesale; the profile screen
// is re-initialized only when the user identity changes.
type Controller struct {
	Auth    *AuthScreen
	Profile *ProfileScreen

	provider persona.SessionProvider
	log      logrus.FieldLogger

	mutex       sync.Mutex
	state       State
	session     *persona.Session
	unsubscribe func()
	started     bool
	closed      bool
}

func NewController(provider persona.SessionProvider, profiles persona.ProfileStore,
	blobs persona.BlobStore, log logrus.FieldLogger) *Controller {
	return &Controller{
		Auth:     NewAuthScreen(provider, log),
		Profile:  NewProfileScreen(profiles, blobs, provider, log),
		provider: provider,
		log:      log,
	}
}

// Start subscribes to session changes and then applies the provider's
// current session, unless a change notification already arrived.
func (c *Controller) Start(ctx context.Context) error {
	c.mutex.Lock()
	if c.started || c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.started = true
	c.mutex.Unlock()

	unsubscribe := c.provider.OnSessionChange(c.onSessionChange)
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	c.mutex.Unlock()

	session, err := c.provider.GetCurrentSession(ctx)
	if err != nil {
		c.log.WithError(err).Warnln("Could not get current session.")
		session = nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.state != StateUnknown {
		return err
	}
	c.apply(session)
	return err
}

// Close releases the change subscription. Later notifications are ignored.
func (c *Controller) Close() {
	c.mutex.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.closed = true
	c.mutex.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) onSessionChange(event persona.AuthEvent, session *persona.Session) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return
	}
	c.log.WithField("event", event).Debugln("Session changed.")
	c.apply(session)
}

// apply must be called with c.mutex held.
func (c *Controller) apply(session *persona.Session) {
	previous := c.session
	c.session = copySession(session)

	if session == nil {
		c.state = StateAnonymous
		if previous != nil {
			c.Profile.Reset(nil)
		}
		return
	}
	c.state = StateAuthenticated
	if previous == nil || previous.UserId != session.UserId {
		c.Profile.Reset(session)
	} else {
		c.Profile.SetSession(*session)
	}
}

func (c *Controller) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// Session returns a copy of the current session, nil when anonymous.
func (c *Controller) Session() *persona.Session {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return copySession(c.session)
}

func (c *Controller) Screen() Screen {
	switch c.State() {
	case StateAnonymous:
		return ScreenAuth
	case StateAuthenticated:
		return ScreenProfile
	default:
		return ScreenLoading
	}
}
