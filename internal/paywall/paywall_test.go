package paywall

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/store"
	"github.com/retreatscout/retreat-scout/internal/store/sqlite"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "paywall.db"))
	require.NoError(t, err)
	return s
}

func TestUnlocked_Idempotent(t *testing.T) {
	r := NewResolver(newStore(t), zerolog.Nop())
	p := &model.Profile{UserID: "u1"}

	first := r.Unlocked(p)
	second := r.Unlocked(p)
	assert.False(t, first)
	assert.Equal(t, first, second)
}

func TestUnlocked_PremiumProfile(t *testing.T) {
	r := NewResolver(newStore(t), zerolog.Nop())
	assert.True(t, r.Unlocked(&model.Profile{UserID: "u1", IsPremium: true}))
}

func TestConfirmPayment_WritesThroughAndUnlocksLocally(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Profiles().Create(ctx, &model.Profile{UserID: "u1", Email: "u1@example.test"})
	require.NoError(t, err)

	r := NewResolver(s, zerolog.Nop())
	profile, err := r.ConfirmPayment(ctx, "u1", 0)
	require.NoError(t, err)

	assert.True(t, profile.IsPremium)
	assert.Equal(t, model.PaymentStatusCompleted, profile.PaymentStatus)

	// Durable flag persisted.
	got, err := s.Profiles().Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsPremium)

	// Payment record inserted with the demo defaults.
	ps, err := s.Payments().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, DefaultAmount, ps[0].Amount)
	assert.Equal(t, model.PaymentMethodDemo, ps[0].Method)

	// Local flag answers unlocked without re-reading the profile.
	assert.True(t, r.Unlocked(&model.Profile{UserID: "u1"}))
}

func TestLocalUnlockDoesNotSurviveNewResolver(t *testing.T) {
	s := newStore(t)
	r1 := NewResolver(s, zerolog.Nop())
	r1.SimulateUnlock()
	assert.True(t, r1.Unlocked(&model.Profile{}))

	// A fresh resolver (a reload) only sees the durable flag.
	r2 := NewResolver(s, zerolog.Nop())
	assert.False(t, r2.Unlocked(&model.Profile{}))
}

func TestPresent_LockedWithholdsLinksAsAUnit(t *testing.T) {
	rs := []*model.Retreat{
		{Title: "A", Link: "https://bookretreats.com/a", Date: "March 15, 2025"},
		{Title: "B", Link: "https://retreat.guru/b", Date: "Date not available"},
	}

	out, locked := Present(rs, false)
	assert.True(t, locked)
	for i, r := range out {
		assert.Empty(t, r.Link)
		assert.Equal(t, rs[i].Title, r.Title)
		assert.Equal(t, rs[i].Date, r.Date)
	}
	// Source list is untouched.
	assert.NotEmpty(t, rs[0].Link)

	out, locked = Present(rs, true)
	assert.False(t, locked)
	assert.Equal(t, rs, out)
}
