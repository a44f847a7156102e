package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/retreatscout/retreat-scout/internal/identity"
	"github.com/retreatscout/retreat-scout/internal/paywall"
	"github.com/retreatscout/retreat-scout/internal/searchprov"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// Hub hands out one Controller per user. Controllers are created lazily
// on first access and live until Drop; each gets its own paywall
// resolver so one user's local unlock never leaks to another.
type Hub struct {
	mu          sync.Mutex
	store       store.Store
	search      searchprov.Provider
	log         zerolog.Logger
	controllers map[string]*Controller
}

func NewHub(st store.Store, search searchprov.Provider, log zerolog.Logger) *Hub {
	return &Hub{
		store:       st,
		search:      search,
		log:         log,
		controllers: make(map[string]*Controller),
	}
}

// Get returns the user's controller, creating and authenticating one on
// first access.
func (h *Hub) Get(ctx context.Context, id *identity.Identity) (*Controller, error) {
	h.mu.Lock()
	c, ok := h.controllers[id.UserID]
	h.mu.Unlock()
	if ok {
		return c, nil
	}

	c = NewController(h.store, h.search, paywall.NewResolver(h.store, h.log), h.log)
	if err := c.Authenticate(ctx, id); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.controllers[id.UserID]; ok {
		return existing, nil
	}
	h.controllers[id.UserID] = c
	return c, nil
}

// Drop discards a user's controller, e.g. on sign-out.
func (h *Hub) Drop(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.controllers[userID]; ok {
		c.SignOut()
		delete(h.controllers, userID)
	}
}
