// Package chat implements the per-user conversation controller. It owns
// the in-memory transcript, the active-session pointer and the retreat
// list, and drives the send protocol against the persistence gateway
// and the search provider.
package chat

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/retreatscout/retreat-scout/internal/extract"
	"github.com/retreatscout/retreat-scout/internal/identity"
	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/paywall"
	"github.com/retreatscout/retreat-scout/internal/searchprov"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// Fixed transcript strings. The bot never generates free text; every
// bot message is one of these.
const (
	GreetingText     = `Hi! Search for upcoming retreats by typing something like "Yoga in Bali".`
	SearchingText    = "Searching for retreats..."
	FoundText        = "I found some retreats. Please pay to unlock booking info."
	SearchFailedText = "Could not find retreats. Try again."
	UnlockedText     = "Access granted! Enjoy your retreats."

	DefaultSessionName = "New Chat"
)

// Entry is one transcript line. Annotation carries a non-fatal
// persistence failure attached to the message it affected; the message
// itself remains visible.
type Entry struct {
	model.ChatMessage
	Annotation string `json:"annotation,omitempty"`
}

// Controller is a single user's conversation state machine. All state
// transitions are serialized: mutators take the internal mutex, and the
// send flow additionally holds an exclusive in-flight flag so that a
// second send while a search is outstanding is rejected with ErrBusy
// instead of queued.
type Controller struct {
	store    store.Store
	search   searchprov.Provider
	resolver *paywall.Resolver
	log      zerolog.Logger

	mu         sync.Mutex
	user       *identity.Identity
	profile    *model.Profile
	sessionID  string
	transcript []Entry
	retreats   []*model.Retreat
	input      string
	loading    bool

	// generation invalidates in-flight search results when the user
	// switches or deletes the session mid-fetch.
	generation uint64

	sending    atomic.Bool
	authPrompt func()
}

// NewController returns a controller in the no-session state with the
// greeting already on the transcript.
func NewController(st store.Store, search searchprov.Provider, resolver *paywall.Resolver, log zerolog.Logger) *Controller {
	c := &Controller{
		store:    st,
		search:   search,
		resolver: resolver,
		log:      log.With().Str("component", "chat").Logger(),
	}
	c.resetLocked()
	return c
}

// SetAuthPromptHook installs the callback fired when an unauthenticated
// user attempts to send. It is invoked exactly once per rejected send.
func (c *Controller) SetAuthPromptHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authPrompt = fn
}

// Authenticate supplies the identity that resumes a suspended flow. The
// profile is loaded eagerly so the paywall can consult the persisted
// premium flag without a store round-trip per render.
func (c *Controller) Authenticate(ctx context.Context, id *identity.Identity) error {
	prof, err := c.store.Profiles().Get(ctx, id.UserID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return errors.Wrap(err, "load profile")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = id
	c.profile = prof
	return nil
}

// SignOut drops the identity and all per-user state, including the
// local paywall unlock.
func (c *Controller) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	c.profile = nil
	c.resolver.Reset()
	c.resetLocked()
}

// resetLocked returns the controller to the no-session state: greeting
// on the transcript, no retreats, no active session. Callers hold mu.
func (c *Controller) resetLocked() {
	c.sessionID = ""
	c.retreats = nil
	c.input = ""
	c.loading = false
	c.generation++
	c.transcript = []Entry{{ChatMessage: model.ChatMessage{
		Role:      model.RoleBot,
		Text:      GreetingText,
		CreatedAt: time.Now().UTC(),
	}}}
}

// SessionID returns the active session id, or "" when no session is
// active.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Loading reports whether a retreat fetch is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Transcript returns a copy of the current transcript.
func (c *Controller) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Retreats returns the current retreat cards with booking links
// redacted unless the paywall is unlocked, plus the locked flag for the
// whole block.
func (c *Controller) Retreats() ([]*model.Retreat, bool) {
	c.mu.Lock()
	rs := make([]*model.Retreat, len(c.retreats))
	copy(rs, c.retreats)
	prof := c.profile
	c.mu.Unlock()
	return paywall.Present(rs, c.resolver.Unlocked(prof))
}

// SetInput stores the pending user input. Send consumes it.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Input returns the pending input buffer.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SendText is SetInput followed by Send.
func (c *Controller) SendText(ctx context.Context, text string) error {
	c.SetInput(text)
	return c.Send(ctx)
}

// Send runs the send protocol for the buffered input:
//
//  1. blank input is a silent no-op
//  2. without an identity the flow suspends with ErrAuthRequired
//  3. a session is created lazily; creation failure aborts the send
//  4. the user message is appended and persisted
//  5. a searching notice is appended
//  6. retreats are fetched, extracted and persisted
//  7. a closing bot message is appended
//  8. the input buffer is cleared
//
// Persistence failures in steps 4-6 are non-fatal: the in-memory state
// advances and the failure is recorded as an inline annotation.
func (c *Controller) Send(ctx context.Context) error {
	c.mu.Lock()
	text := strings.TrimSpace(c.input)
	user := c.user
	prompt := c.authPrompt
	c.mu.Unlock()

	if text == "" {
		return nil
	}
	if user == nil {
		if prompt != nil {
			prompt()
		}
		return ErrAuthRequired
	}
	if !c.sending.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.sending.Store(false)

	sessionID, gen, err := c.ensureSession(ctx, user)
	if err != nil {
		return err
	}

	c.appendMessage(ctx, gen, sessionID, user.UserID, model.RoleUser, text)
	c.appendMessage(ctx, gen, sessionID, user.UserID, model.RoleBot, SearchingText)

	c.fetchRetreats(ctx, gen, sessionID, user.UserID, text)

	c.appendMessage(ctx, gen, sessionID, user.UserID, model.RoleBot, FoundText)

	if err := c.store.Sessions().Touch(ctx, user.UserID, sessionID); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("touch session failed")
	}

	c.mu.Lock()
	if c.generation == gen {
		c.input = ""
	}
	c.mu.Unlock()
	return nil
}

// ensureSession returns the active session id, creating one named
// "New Chat" if none is active. Creation failure is the one fatal
// persistence error in the send flow: without a session id nothing
// downstream can be stored.
func (c *Controller) ensureSession(ctx context.Context, user *identity.Identity) (string, uint64, error) {
	c.mu.Lock()
	if c.sessionID != "" {
		id, gen := c.sessionID, c.generation
		c.mu.Unlock()
		return id, gen, nil
	}
	c.mu.Unlock()

	sess := &model.ChatSession{
		ID:     uuid.NewString(),
		UserID: user.UserID,
		Name:   DefaultSessionName,
	}
	if _, err := c.store.Sessions().Create(ctx, sess); err != nil {
		return "", 0, errors.Wrap(err, "create session")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sess.ID
	return sess.ID, c.generation, nil
}

// appendMessage appends to the transcript and persists. A store failure
// is logged and pinned to the entry as an annotation; the entry stays.
// Entries for a superseded generation are dropped entirely.
func (c *Controller) appendMessage(ctx context.Context, gen uint64, sessionID, userID, role, text string) {
	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	entry := Entry{ChatMessage: *msg}
	if _, err := c.store.Messages().Append(ctx, msg); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sessionID).Str("role", role).Msg("persist message failed")
		entry.Annotation = "not saved: " + err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.transcript = append(c.transcript, entry)
}

// fetchRetreats performs the search, extraction and retreat
// persistence. The loading flag brackets the whole fetch. A search
// failure surfaces as a bot message; a persistence failure annotates
// the searching notice. Neither aborts the send.
func (c *Controller) fetchRetreats(ctx context.Context, gen uint64, sessionID, userID, query string) {
	c.setLoading(gen, true)
	defer c.setLoading(gen, false)

	items, err := c.search.Search(ctx, extract.BuildQuery(query))
	if err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("search failed")
		c.appendMessage(ctx, gen, sessionID, userID, model.RoleBot, SearchFailedText)
		c.mu.Lock()
		if c.generation == gen {
			c.retreats = nil
		}
		c.mu.Unlock()
		return
	}

	candidates := extract.Extract(items)
	rs := make([]*model.Retreat, 0, len(candidates))
	for _, cand := range candidates {
		rs = append(rs, &model.Retreat{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: sessionID,
			Title:     cand.Title,
			Location:  cand.Location,
			Date:      cand.Date,
			Link:      cand.Link,
			Image:     cand.Image,
			CreatedAt: time.Now().UTC(),
		})
	}

	var persistErr error
	if len(rs) > 0 {
		_, persistErr = c.store.Retreats().BulkInsert(ctx, rs)
		if persistErr != nil {
			c.log.Warn().Err(persistErr).Str("sessionId", sessionID).Int("count", len(rs)).Msg("persist retreats failed")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.retreats = rs
	if persistErr != nil {
		for i := len(c.transcript) - 1; i >= 0; i-- {
			if c.transcript[i].Text == SearchingText {
				c.transcript[i].Annotation = "retreats not saved: " + persistErr.Error()
				break
			}
		}
	}
}

func (c *Controller) setLoading(gen uint64, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen && v {
		return
	}
	c.loading = v
}

// NewSession resets to the no-session state. The next send will create
// a fresh session lazily; nothing is persisted here.
func (c *Controller) NewSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// CreateSession persists a new session immediately and makes it active.
// The lazy path in Send remains the usual entry point; this one backs
// the explicit new-chat action.
func (c *Controller) CreateSession(ctx context.Context, name string) (*model.ChatSession, error) {
	user, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultSessionName
	}
	sess, err := c.store.Sessions().Create(ctx, &model.ChatSession{
		ID:     uuid.NewString(),
		UserID: user.UserID,
		Name:   name,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create session")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.sessionID = sess.ID
	return sess, nil
}

// StoredMessages lists a session's persisted transcript after checking
// the session belongs to the current user.
func (c *Controller) StoredMessages(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	user, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	if _, err := c.store.Sessions().Get(ctx, user.UserID, sessionID); err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	return c.store.Messages().List(ctx, sessionID)
}

// StoredRetreats lists a session's persisted retreats with the paywall
// policy applied.
func (c *Controller) StoredRetreats(ctx context.Context, sessionID string) ([]*model.Retreat, bool, error) {
	user, err := c.requireUser()
	if err != nil {
		return nil, false, err
	}
	if _, err := c.store.Sessions().Get(ctx, user.UserID, sessionID); err != nil {
		return nil, false, errors.Wrap(err, "load session")
	}
	rs, err := c.store.Retreats().List(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	prof := c.profile
	c.mu.Unlock()
	out, locked := paywall.Present(rs, c.resolver.Unlocked(prof))
	return out, locked, nil
}

// Sessions lists the user's sessions, most recently updated first.
func (c *Controller) Sessions(ctx context.Context) ([]*model.ChatSession, error) {
	user, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	return c.store.Sessions().List(ctx, user.UserID)
}

// Switch makes the given session active, replacing the in-memory
// transcript and retreat list with the session's persisted data.
// Any in-flight fetch for the previous session is invalidated. The
// local paywall unlock does not carry over; access then depends only on
// the persisted profile flag.
func (c *Controller) Switch(ctx context.Context, sessionID string) error {
	user, err := c.requireUser()
	if err != nil {
		return err
	}
	if _, err := c.store.Sessions().Get(ctx, user.UserID, sessionID); err != nil {
		return errors.Wrap(err, "load session")
	}
	msgs, err := c.store.Messages().List(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, "load messages")
	}
	rs, err := c.store.Retreats().List(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, "load retreats")
	}
	prof, err := c.store.Profiles().Get(ctx, user.UserID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return errors.Wrap(err, "load profile")
	}

	entries := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, Entry{ChatMessage: *m})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.sessionID = sessionID
	c.transcript = entries
	c.retreats = rs
	c.profile = prof
	c.input = ""
	c.loading = false
	c.resolver.Reset()
	return nil
}

// Rename changes a session's display name.
func (c *Controller) Rename(ctx context.Context, sessionID, name string) (*model.ChatSession, error) {
	user, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(model.ErrValidation, "session name must not be empty")
	}
	return c.store.Sessions().Rename(ctx, user.UserID, sessionID, name)
}

// Delete removes a session and its dependents as a three-stage cascade:
// messages, then retreats, then the session row. A failure on the first
// stage leaves everything intact and returns a plain error; a failure
// after a prior stage succeeded returns a PartialDeleteError naming the
// completed stages. Deleting the active session resets to no-session.
func (c *Controller) Delete(ctx context.Context, sessionID string) error {
	user, err := c.requireUser()
	if err != nil {
		return err
	}
	// Ownership gate before the cascade touches anything: message and
	// retreat deletes are keyed by session id alone.
	if _, err := c.store.Sessions().Get(ctx, user.UserID, sessionID); err != nil {
		return errors.Wrap(err, "load session")
	}

	var completed []string
	if err := c.store.Messages().DeleteBySession(ctx, sessionID); err != nil {
		return errors.Wrap(err, "delete messages")
	}
	completed = append(completed, "messages")
	if err := c.store.Retreats().DeleteBySession(ctx, sessionID); err != nil {
		return &PartialDeleteError{SessionID: sessionID, Completed: completed, Failed: "retreats", Err: err}
	}
	completed = append(completed, "retreats")
	if err := c.store.Sessions().Delete(ctx, user.UserID, sessionID); err != nil {
		return &PartialDeleteError{SessionID: sessionID, Completed: completed, Failed: "session", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == sessionID {
		c.resetLocked()
	}
	return nil
}

// ConfirmPayment records the demo payment, flips the persisted premium
// flag through the resolver, and appends the unlock confirmation to the
// transcript.
func (c *Controller) ConfirmPayment(ctx context.Context, amount float64) (*model.Profile, error) {
	user, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	prof, err := c.resolver.ConfirmPayment(ctx, user.UserID, amount)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.profile = prof
	sessionID := c.sessionID
	gen := c.generation
	c.mu.Unlock()

	if sessionID != "" {
		c.appendMessage(ctx, gen, sessionID, user.UserID, model.RoleBot, UnlockedText)
	}
	return prof, nil
}

func (c *Controller) requireUser() (*identity.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil, ErrAuthRequired
	}
	return c.user, nil
}
