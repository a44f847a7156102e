package store

import (
	"context"

	"github.com/retreatscout/retreat-scout/internal/model"
)

// Store exposes the persistence operations the chat controller and
// identity layer need from the backend. Implementations live under
// internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Profiles() Profiles
	Sessions() Sessions
	Messages() Messages
	Retreats() Retreats
	Payments() Payments
	Credentials() Credentials
}

type Profiles interface {
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)
	Get(ctx context.Context, userID string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	Update(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error)
}

type Sessions interface {
	Create(ctx context.Context, s *model.ChatSession) (*model.ChatSession, error)
	Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	// List returns the user's sessions ordered by updated_at descending.
	List(ctx context.Context, userID string) ([]*model.ChatSession, error)
	Rename(ctx context.Context, userID, sessionID, name string) (*model.ChatSession, error)
	// Touch bumps updated_at so recently used sessions list first.
	Touch(ctx context.Context, userID, sessionID string) error
	Delete(ctx context.Context, userID, sessionID string) error
}

type Messages interface {
	Append(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error)
	// List returns messages ordered by created_at ascending.
	List(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

type Retreats interface {
	BulkInsert(ctx context.Context, rs []*model.Retreat) ([]*model.Retreat, error)
	// List returns retreats ordered by created_at ascending.
	List(ctx context.Context, sessionID string) ([]*model.Retreat, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

type Payments interface {
	Insert(ctx context.Context, p *model.Payment) (*model.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Payment, error)
}

// Credentials persists password hashes separately from the public profile.
type Credentials interface {
	Set(ctx context.Context, userID string, hash []byte) error
	GetByEmail(ctx context.Context, email string) (userID string, hash []byte, err error)
}
