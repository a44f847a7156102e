package model

import "time"

// Message roles. Transcripts only ever contain these two.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Profile represents an account in the system. IsPremium is the sole
// durable entitlement flag; it is flipped by a completed payment write.
type Profile struct {
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	FullName      *string   `json:"fullName,omitempty"`
	IsPremium     bool      `json:"isPremium"`
	PaymentStatus string    `json:"paymentStatus"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ProfilePatch carries the mutable profile fields for partial updates.
// Nil fields are left untouched.
type ProfilePatch struct {
	FullName      *string `json:"fullName,omitempty"`
	IsPremium     *bool   `json:"isPremium,omitempty"`
	PaymentStatus *string `json:"paymentStatus,omitempty"`
}

// ChatSession is a named, ordered container of messages and retreats
// owned by one user.
type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatMessage is an immutable transcript record. Messages are append-only
// within a session and strictly ordered by creation time.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Retreat is a persisted retreat record derived from one search result item.
type Retreat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	Date      string    `json:"date"`
	Link      string    `json:"link,omitempty"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payment is a simulated payment record. No real processing happens;
// inserting one with status completed is what flips the profile flag.
type Payment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	PaymentStatusCompleted = "completed"
	PaymentMethodDemo      = "demo_payment"
)
