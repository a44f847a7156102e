// Package paywall derives the unlock flag that gates full retreat
// results, and performs the simulated payment write-through.
package paywall

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// DefaultAmount is the demo price for premium access.
const DefaultAmount = 9.99

// Resolver computes the paywall unlock flag. The durable source of truth
// is Profile.IsPremium; a session-local unlock event acts as a
// read-through cache of that flag for the in-memory lifetime of the
// resolver and does not survive a reload on its own.
type Resolver struct {
	mu          sync.Mutex
	localUnlock bool
	store       store.Store
	log         zerolog.Logger
}

func NewResolver(s store.Store, log zerolog.Logger) *Resolver {
	return &Resolver{store: s, log: log}
}

// Unlocked reports whether full results are visible for the profile.
// Calling it repeatedly with the same profile and no new event always
// returns the same answer.
func (r *Resolver) Unlocked(profile *model.Profile) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile != nil && profile.IsPremium {
		return true
	}
	return r.localUnlock
}

// Reset drops the session-local unlock, e.g. when switching users.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.localUnlock = false
	r.mu.Unlock()
}

// SimulateUnlock fires the one-shot local unlock event without touching
// the durable profile flag. It lasts for the in-memory lifetime of the
// resolver only; a reload falls back to Profile.IsPremium.
func (r *Resolver) SimulateUnlock() {
	r.mu.Lock()
	r.localUnlock = true
	r.mu.Unlock()
}

// ConfirmPayment records a completed demo payment and flips the durable
// premium flag. The local unlock is set first so the current session
// reads as unlocked even before the profile write settles.
func (r *Resolver) ConfirmPayment(ctx context.Context, userID string, amount float64) (*model.Profile, error) {
	if amount <= 0 {
		amount = DefaultAmount
	}

	r.mu.Lock()
	r.localUnlock = true
	r.mu.Unlock()

	if _, err := r.store.Payments().Insert(ctx, &model.Payment{
		UserID: userID,
		Amount: amount,
		Status: model.PaymentStatusCompleted,
		Method: model.PaymentMethodDemo,
	}); err != nil {
		return nil, err
	}

	premium := true
	status := model.PaymentStatusCompleted
	profile, err := r.store.Profiles().Update(ctx, userID, model.ProfilePatch{
		IsPremium:     &premium,
		PaymentStatus: &status,
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("userId", userID).Float64("amount", amount).Msg("payment recorded, premium enabled")
	return profile, nil
}

// Present applies the visibility policy to a retreat list. Cards are
// gated as one block: when locked, every booking link is withheld and
// the whole list is marked locked; title, location, date and image stay.
func Present(rs []*model.Retreat, unlocked bool) ([]*model.Retreat, bool) {
	if unlocked {
		return rs, false
	}
	out := make([]*model.Retreat, len(rs))
	for i, r := range rs {
		cp := *r
		cp.Link = ""
		out[i] = &cp
	}
	return out, true
}
