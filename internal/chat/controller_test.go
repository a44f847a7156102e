package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/retreatscout/retreat-scout/internal/identity"
	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/paywall"
	"github.com/retreatscout/retreat-scout/internal/searchprov"
	"github.com/retreatscout/retreat-scout/internal/store"
	"github.com/retreatscout/retreat-scout/internal/store/sqlite"
)

type fakeProvider struct {
	mu      sync.Mutex
	items   []searchprov.Item
	err     error
	gate    chan struct{}
	queries []string
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]searchprov.Item, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.gate
	items, err := f.items, f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return items, err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

var sampleItems = []searchprov.Item{
	{
		Title:       "Bali Yoga Retreat - March 15, 2025",
		Snippet:     "A serene escape in the rice fields.",
		DisplayLink: "retreat.guru",
		Link:        "https://retreat.guru/bali",
		Thumbnail:   "https://img.example/bali.jpg",
	},
	{
		Title:       "Ubud Meditation Week",
		Snippet:     "Silent meditation retreat, April 2, 2025.",
		DisplayLink: "bookretreats.com",
		Link:        "https://bookretreats.com/ubud",
	},
}

// flakyStore wraps a real store to inject failures on specific calls.
type flakyStore struct {
	store.Store
	failSessionCreate bool
	failMessageAppend bool
	failRetreatDelete bool
}

func (s *flakyStore) Sessions() store.Sessions { return &flakySessions{s.Store.Sessions(), s} }
func (s *flakyStore) Messages() store.Messages { return &flakyMessages{s.Store.Messages(), s} }
func (s *flakyStore) Retreats() store.Retreats { return &flakyRetreats{s.Store.Retreats(), s} }

type flakySessions struct {
	store.Sessions
	owner *flakyStore
}

func (f *flakySessions) Create(ctx context.Context, sess *model.ChatSession) (*model.ChatSession, error) {
	if f.owner.failSessionCreate {
		return nil, errors.New("injected: session create down")
	}
	return f.Sessions.Create(ctx, sess)
}

type flakyMessages struct {
	store.Messages
	owner *flakyStore
}

func (f *flakyMessages) Append(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error) {
	if f.owner.failMessageAppend {
		return nil, errors.New("injected: message append down")
	}
	return f.Messages.Append(ctx, m)
}

type flakyRetreats struct {
	store.Retreats
	owner *flakyStore
}

func (f *flakyRetreats) DeleteBySession(ctx context.Context, sessionID string) error {
	if f.owner.failRetreatDelete {
		return errors.New("injected: retreat delete down")
	}
	return f.Retreats.DeleteBySession(ctx, sessionID)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	return st
}

func newTestUser(t *testing.T, st store.Store, userID string) *identity.Identity {
	t.Helper()
	_, err := st.Profiles().Create(context.Background(), &model.Profile{
		UserID: userID,
		Email:  userID + "@example.com",
	})
	require.NoError(t, err)
	return &identity.Identity{UserID: userID, Email: userID + "@example.com"}
}

func newTestController(t *testing.T, st store.Store, p searchprov.Provider) *Controller {
	t.Helper()
	log := zerolog.Nop()
	return NewController(st, p, paywall.NewResolver(st, log), log)
}

func texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestSendUnauthenticated(t *testing.T) {
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)

	prompts := 0
	c.SetAuthPromptHook(func() { prompts++ })

	err := c.SendText(context.Background(), "Yoga in Bali")
	require.ErrorIs(t, err, ErrAuthRequired)
	require.Equal(t, 1, prompts)
	require.Equal(t, 0, prov.calls())

	// Nothing reached the store and the transcript is untouched.
	sessions, err := st.Sessions().List(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, sessions)
	require.Equal(t, []string{GreetingText}, texts(c.Transcript()))
	require.Equal(t, "Yoga in Bali", c.Input())
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(context.Background(), newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(context.Background(), "   "))
	require.Equal(t, 0, prov.calls())
	require.Empty(t, c.SessionID())
	require.Equal(t, []string{GreetingText}, texts(c.Transcript()))
}

func TestSendHappyPath(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))

	sessionID := c.SessionID()
	require.NotEmpty(t, sessionID)
	require.Empty(t, c.Input())
	require.False(t, c.Loading())

	require.Equal(t, []string{
		GreetingText,
		"Yoga in Bali",
		SearchingText,
		FoundText,
	}, texts(c.Transcript()))

	// Session was created lazily with the default name.
	sessions, err := st.Sessions().List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, DefaultSessionName, sessions[0].Name)

	// The greeting is local only; persisted messages start at the user
	// input and keep order.
	msgs, err := st.Messages().List(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "Yoga in Bali", msgs[0].Text)
	require.Equal(t, model.RoleUser, msgs[0].Role)
	require.Equal(t, SearchingText, msgs[1].Text)
	require.Equal(t, FoundText, msgs[2].Text)

	rs, locked := c.Retreats()
	require.True(t, locked)
	require.Len(t, rs, 2)
	for _, r := range rs {
		require.Empty(t, r.Link)
	}

	persisted, err := st.Retreats().List(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	require.Equal(t, "https://retreat.guru/bali", persisted[0].Link)
}

func TestSendBusyWhileFetching(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	gate := make(chan struct{})
	prov := &fakeProvider{items: sampleItems, gate: gate}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	done := make(chan error, 1)
	c.SetInput("Yoga in Bali")
	go func() { done <- c.Send(ctx) }()

	require.Eventually(t, c.Loading, 2*time.Second, 5*time.Millisecond)

	err := c.SendText(ctx, "Surf camp")
	require.ErrorIs(t, err, ErrBusy)

	close(gate)
	require.NoError(t, <-done)
	require.Equal(t, 1, prov.calls())
}

func TestStaleFetchDiscarded(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	gate := make(chan struct{})
	prov := &fakeProvider{items: sampleItems, gate: gate}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	done := make(chan error, 1)
	c.SetInput("Yoga in Bali")
	go func() { done <- c.Send(ctx) }()
	require.Eventually(t, c.Loading, 2*time.Second, 5*time.Millisecond)

	// Abandon the session mid-fetch. The completed send must not touch
	// the fresh state.
	c.NewSession()

	close(gate)
	require.NoError(t, <-done)

	require.Empty(t, c.SessionID())
	require.Equal(t, []string{GreetingText}, texts(c.Transcript()))
	rs, _ := c.Retreats()
	require.Empty(t, rs)
	require.False(t, c.Loading())
}

func TestSendSearchFailure(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{err: errors.New("quota exceeded")}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))

	require.Equal(t, []string{
		GreetingText,
		"Yoga in Bali",
		SearchingText,
		SearchFailedText,
		FoundText,
	}, texts(c.Transcript()))

	rs, _ := c.Retreats()
	require.Empty(t, rs)
	require.False(t, c.Loading())
}

func TestSendSessionCreateFailureAborts(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	st := &flakyStore{Store: base, failSessionCreate: true}
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, base, "u1")))

	err := c.SendText(ctx, "Yoga in Bali")
	require.Error(t, err)
	require.Contains(t, err.Error(), "create session")

	require.Empty(t, c.SessionID())
	require.Equal(t, 0, prov.calls())
	require.Equal(t, []string{GreetingText}, texts(c.Transcript()))
}

func TestSendMessagePersistFailureAnnotates(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	st := &flakyStore{Store: base, failMessageAppend: true}
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, base, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))

	entries := c.Transcript()
	require.Equal(t, []string{
		GreetingText,
		"Yoga in Bali",
		SearchingText,
		FoundText,
	}, texts(entries))
	for _, e := range entries[1:] {
		require.Contains(t, e.Annotation, "not saved")
	}

	// The flow still completed: retreats were fetched and stored.
	persisted, err := base.Retreats().List(ctx, c.SessionID())
	require.NoError(t, err)
	require.Len(t, persisted, 2)
}

func TestDeleteActiveSessionResets(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))
	sessionID := c.SessionID()

	require.NoError(t, c.Delete(ctx, sessionID))

	require.Empty(t, c.SessionID())
	require.Equal(t, []string{GreetingText}, texts(c.Transcript()))
	rs, _ := c.Retreats()
	require.Empty(t, rs)

	sessions, err := st.Sessions().List(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, sessions)
	msgs, err := st.Messages().List(ctx, sessionID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestDeletePartialFailure(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	st := &flakyStore{Store: base}
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, base, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))
	sessionID := c.SessionID()

	st.failRetreatDelete = true
	err := c.Delete(ctx, sessionID)

	var pde *PartialDeleteError
	require.ErrorAs(t, err, &pde)
	require.Equal(t, sessionID, pde.SessionID)
	require.Equal(t, []string{"messages"}, pde.Completed)
	require.Equal(t, "retreats", pde.Failed)
	require.Contains(t, pde.Error(), "partially deleted")

	// Messages are gone, the session row and retreats remain, and the
	// controller keeps the session active.
	msgs, err2 := base.Messages().List(ctx, sessionID)
	require.NoError(t, err2)
	require.Empty(t, msgs)
	_, err2 = st.Sessions().Get(ctx, "u1", sessionID)
	require.NoError(t, err2)
	require.Equal(t, sessionID, c.SessionID())
}

func TestSwitchReplacesState(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))
	first := c.SessionID()

	c.NewSession()
	require.Empty(t, c.SessionID())
	require.Equal(t, []string{GreetingText}, texts(c.Transcript()))

	prov.mu.Lock()
	prov.items = sampleItems[:1]
	prov.mu.Unlock()
	require.NoError(t, c.SendText(ctx, "Meditation in Ubud"))
	second := c.SessionID()
	require.NotEqual(t, first, second)

	require.NoError(t, c.Switch(ctx, first))
	require.Equal(t, first, c.SessionID())
	require.Equal(t, []string{
		"Yoga in Bali",
		SearchingText,
		FoundText,
	}, texts(c.Transcript()))
	rs, _ := c.Retreats()
	require.Len(t, rs, 2)
}

func TestSwitchUnknownSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	c := newTestController(t, st, &fakeProvider{})
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	err := c.Switch(ctx, "nope")
	require.ErrorIs(t, err, model.ErrNotFound)
	require.Empty(t, c.SessionID())
}

func TestSwitchDropsLocalUnlock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	resolver := paywall.NewResolver(st, zerolog.Nop())
	c := NewController(st, prov, resolver, zerolog.Nop())
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))
	sessionID := c.SessionID()

	resolver.SimulateUnlock()
	rs, locked := c.Retreats()
	require.False(t, locked)
	require.NotEmpty(t, rs[0].Link)

	require.NoError(t, c.Switch(ctx, sessionID))
	_, locked = c.Retreats()
	require.True(t, locked)
}

func TestRenameValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))
	sessionID := c.SessionID()

	_, err := c.Rename(ctx, sessionID, "  ")
	require.ErrorIs(t, err, model.ErrValidation)

	sess, err := c.Rename(ctx, sessionID, "Bali trip")
	require.NoError(t, err)
	require.Equal(t, "Bali trip", sess.Name)
}

func TestConfirmPaymentUnlocks(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))
	_, locked := c.Retreats()
	require.True(t, locked)

	prof, err := c.ConfirmPayment(ctx, 0)
	require.NoError(t, err)
	require.True(t, prof.IsPremium)
	require.Equal(t, model.PaymentStatusCompleted, prof.PaymentStatus)

	rs, locked := c.Retreats()
	require.False(t, locked)
	require.Equal(t, "https://retreat.guru/bali", rs[0].Link)

	entries := texts(c.Transcript())
	require.Equal(t, UnlockedText, entries[len(entries)-1])

	payments, err := st.Payments().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Equal(t, paywall.DefaultAmount, payments[0].Amount)
	require.Equal(t, model.PaymentMethodDemo, payments[0].Method)
}

func TestSignOutResetsEverything(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	prov := &fakeProvider{items: sampleItems}
	c := newTestController(t, st, prov)
	require.NoError(t, c.Authenticate(ctx, newTestUser(t, st, "u1")))

	require.NoError(t, c.SendText(ctx, "Yoga in Bali"))
	c.SignOut()

	require.Empty(t, c.SessionID())
	require.Equal(t, []string{GreetingText}, texts(c.Transcript()))

	err := c.SendText(ctx, "Yoga in Bali")
	require.ErrorIs(t, err, ErrAuthRequired)
}
