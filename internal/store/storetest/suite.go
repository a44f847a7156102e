package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	userID := "u-" + uuid.New().String()
	email := userID + "@example.test"

	// Profiles
	name := "Test User"
	p, err := s.Profiles().Create(ctx, &model.Profile{UserID: userID, Email: email, FullName: &name})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if p.IsPremium {
		t.Fatalf("new profile must not be premium")
	}
	if got, err := s.Profiles().Get(ctx, userID); err != nil || got.Email != email {
		t.Fatalf("GetProfile: got=%v err=%v", got, err)
	}
	if got, err := s.Profiles().GetByEmail(ctx, email); err != nil || got.UserID != userID {
		t.Fatalf("GetProfileByEmail: got=%v err=%v", got, err)
	}
	if _, err := s.Profiles().Create(ctx, &model.Profile{UserID: "u2-" + uuid.New().String(), Email: email}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("duplicate email: want ErrConflict, got %v", err)
	}
	if _, err := s.Profiles().Get(ctx, "absent"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("absent profile: want ErrNotFound, got %v", err)
	}

	// Premium flag flips through a patch and stays flipped.
	premium := true
	status := model.PaymentStatusCompleted
	up, err := s.Profiles().Update(ctx, userID, model.ProfilePatch{IsPremium: &premium, PaymentStatus: &status})
	if err != nil || !up.IsPremium || up.PaymentStatus != model.PaymentStatusCompleted {
		t.Fatalf("UpdateProfile: got=%v err=%v", up, err)
	}
	if got, _ := s.Profiles().Get(ctx, userID); got == nil || got.FullName == nil || *got.FullName != name {
		t.Fatalf("patch must not clobber unset fields: %v", got)
	}

	// Credentials
	if err := s.Credentials().Set(ctx, userID, []byte("hash-1")); err != nil {
		t.Fatalf("SetCredentials: %v", err)
	}
	if gotID, hash, err := s.Credentials().GetByEmail(ctx, email); err != nil || gotID != userID || string(hash) != "hash-1" {
		t.Fatalf("GetCredentials: id=%s hash=%s err=%v", gotID, hash, err)
	}
	if err := s.Credentials().Set(ctx, userID, []byte("hash-2")); err != nil {
		t.Fatalf("SetCredentials overwrite: %v", err)
	}
	if _, hash, _ := s.Credentials().GetByEmail(ctx, email); string(hash) != "hash-2" {
		t.Fatalf("credentials overwrite not applied")
	}

	// Sessions
	sess, err := s.Sessions().Create(ctx, &model.ChatSession{UserID: userID, Name: "New Chat"})
	if err != nil || sess.ID == "" {
		t.Fatalf("CreateSession: got=%v err=%v", sess, err)
	}
	if got, err := s.Sessions().Get(ctx, userID, sess.ID); err != nil || got.Name != "New Chat" {
		t.Fatalf("GetSession: got=%v err=%v", got, err)
	}

	// Round-trip: N messages then list preserves append order.
	texts := []string{"Yoga in Bali", "Searching for retreats...", "I found some retreats. Please pay to unlock booking info."}
	roles := []string{model.RoleUser, model.RoleBot, model.RoleBot}
	for i, txt := range texts {
		if _, err := s.Messages().Append(ctx, &model.ChatMessage{SessionID: sess.ID, UserID: userID, Role: roles[i], Text: txt}); err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	msgs, err := s.Messages().List(ctx, sess.ID)
	if err != nil || len(msgs) != len(texts) {
		t.Fatalf("ListMessages: n=%d err=%v", len(msgs), err)
	}
	for i, m := range msgs {
		if m.Text != texts[i] || m.Role != roles[i] {
			t.Fatalf("message %d out of order: %q", i, m.Text)
		}
	}

	// Round-trip: M retreats bulk-inserted then listed in order.
	in := []*model.Retreat{
		{UserID: userID, SessionID: sess.ID, Title: "10-Day Yoga Retreat in Ubud", Location: "bookretreats.com", Date: "March 15, 2025", Link: "https://bookretreats.com/r/1", Image: "https://img/1"},
		{UserID: userID, SessionID: sess.ID, Title: "Silent Meditation Week", Location: "retreat.guru", Date: "Date not available", Link: "https://retreat.guru/r/2", Image: "https://img/2"},
	}
	ins, err := s.Retreats().BulkInsert(ctx, in)
	if err != nil || len(ins) != 2 {
		t.Fatalf("BulkInsert: n=%d err=%v", len(ins), err)
	}
	rts, err := s.Retreats().List(ctx, sess.ID)
	if err != nil || len(rts) != 2 {
		t.Fatalf("ListRetreats: n=%d err=%v", len(rts), err)
	}
	for i, r := range rts {
		if r.Title != in[i].Title {
			t.Fatalf("retreat %d out of order: %q", i, r.Title)
		}
	}

	// Rename and Touch reorder the session list.
	time.Sleep(2 * time.Millisecond)
	second, err := s.Sessions().Create(ctx, &model.ChatSession{UserID: userID, Name: "Second"})
	if err != nil {
		t.Fatalf("CreateSession second: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := s.Sessions().Rename(ctx, userID, sess.ID, "Bali Trip"); err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	lst, err := s.Sessions().List(ctx, userID)
	if err != nil || len(lst) != 2 {
		t.Fatalf("ListSessions: n=%d err=%v", len(lst), err)
	}
	if lst[0].ID != sess.ID || lst[0].Name != "Bali Trip" {
		t.Fatalf("rename must bump updated_at ordering: first=%v", lst[0])
	}
	time.Sleep(2 * time.Millisecond)
	if err := s.Sessions().Touch(ctx, userID, second.ID); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}
	if lst, _ = s.Sessions().List(ctx, userID); lst[0].ID != second.ID {
		t.Fatalf("touch must reorder list: first=%v", lst[0])
	}

	// Payments
	pay, err := s.Payments().Insert(ctx, &model.Payment{UserID: userID, Amount: 9.99, Status: model.PaymentStatusCompleted, Method: model.PaymentMethodDemo})
	if err != nil || pay.ID == "" {
		t.Fatalf("InsertPayment: got=%v err=%v", pay, err)
	}
	if ps, err := s.Payments().ListByUser(ctx, userID); err != nil || len(ps) != 1 || ps[0].Amount != 9.99 {
		t.Fatalf("ListPayments: got=%v err=%v", ps, err)
	}

	// Cascade pieces: children first, then the session row.
	if err := s.Messages().DeleteBySession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteMessagesBySession: %v", err)
	}
	if err := s.Retreats().DeleteBySession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteRetreatsBySession: %v", err)
	}
	if err := s.Sessions().Delete(ctx, userID, sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.Sessions().Get(ctx, userID, sess.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("deleted session: want ErrNotFound, got %v", err)
	}
	if err := s.Sessions().Delete(ctx, userID, sess.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
	if msgs, _ := s.Messages().List(ctx, sess.ID); len(msgs) != 0 {
		t.Fatalf("messages left after cascade: %d", len(msgs))
	}
}
