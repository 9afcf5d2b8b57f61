package web

import (
	"context"
	"sync"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/buzkaaclicker/persona/auth"
	"github.com/buzkaaclicker/persona/screen"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultIdleTTL = 2 * time.Hour

// Client is the UI state of one browser.
type Client struct {
	Id         string
	Provider   *auth.Client
	Controller *screen.Controller

	lastSeen time.Time
}

// Clients holds one Client per browser cookie and drops clients idle for
// longer than IdleTTL.
type Clients struct {
	Service  *auth.Service
	Profiles persona.ProfileStore
	Blobs    persona.BlobStore
	IdleTTL  time.Duration
	Log      logrus.FieldLogger

	mutex   sync.Mutex
	clients map[string]*Client
	now     func() time.Time
}

func NewClients(service *auth.Service, profiles persona.ProfileStore, blobs persona.BlobStore,
	idleTTL time.Duration, log logrus.FieldLogger) *Clients {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Clients{
		Service:  service,
		Profiles: profiles,
		Blobs:    blobs,
		IdleTTL:  idleTTL,
		Log:      log,
		clients:  map[string]*Client{},
		now:      time.Now,
	}
}

// Get returns a live client and marks it as seen.
func (c *Clients) Get(id string) (*Client, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	client, ok := c.clients[id]
	if !ok {
		return nil, false
	}
	client.lastSeen = c.now()
	return client, true
}

// Create starts a new signed out client.
func (c *Clients) Create(ctx context.Context) *Client {
	id := uuid.NewString()
	provider := auth.NewClient(c.Service)
	controller := screen.NewController(provider, c.Profiles, c.Blobs, c.Log.WithField("client_id", id))
	// a fresh provider has no session, Start cannot fail
	_ = controller.Start(ctx)

	client := &Client{
		Id:         id,
		Provider:   provider,
		Controller: controller,
		lastSeen:   c.now(),
	}
	c.mutex.Lock()
	c.clients[id] = client
	c.mutex.Unlock()
	return client
}

func (c *Clients) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.clients)
}

// EvictIdle closes clients not seen for IdleTTL and returns how many were
// dropped.
func (c *Clients) EvictIdle() int {
	deadline := c.now().Add(-c.IdleTTL)

	c.mutex.Lock()
	var idle []*Client
	for id, client := range c.clients {
		if client.lastSeen.Before(deadline) {
			idle = append(idle, client)
			delete(c.clients, id)
		}
	}
	c.mutex.Unlock()

	for _, client := range idle {
		client.Controller.Close()
	}
	return len(idle)
}

// Run evicts idle clients every interval until ctx is done.
func (c *Clients) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.EvictIdle(); n > 0 {
				c.Log.WithField("count", n).Debugln("Evicted idle clients.")
			}
		}
	}
}

func (c *Clients) Close() {
	c.mutex.Lock()
	clients := c.clients
	c.clients = map[string]*Client{}
	c.mutex.Unlock()

	for _, client := range clients {
		client.Controller.Close()
	}
}
