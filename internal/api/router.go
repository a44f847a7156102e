package api

import (
	"github.com/gorilla/mux"

	"github.com/retreatscout/retreat-scout/internal/api/recovery"
	"github.com/retreatscout/retreat-scout/internal/chat"
	"github.com/retreatscout/retreat-scout/internal/identity"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// NewRouter wires all HTTP routes. The identity middleware only parses
// and injects the bearer token; each handler decides whether an absent
// identity is an error.
func NewRouter(st store.Store, hub *chat.Hub, ids *identity.Service) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)
	root.Use(ids.Middleware)

	authHandler := NewAuthHandler(ids, hub)
	chatHandler := NewChatHandler(hub, st)
	healthHandler := NewHealthHandler()

	// Auth
	root.HandleFunc("/api/auth/signup", authHandler.SignUp).Methods("POST")
	root.HandleFunc("/api/auth/signin", authHandler.SignIn).Methods("POST")
	root.HandleFunc("/api/auth/signout", authHandler.SignOut).Methods("POST")

	// Sessions
	root.HandleFunc("/api/sessions", chatHandler.CreateSession).Methods("POST")
	root.HandleFunc("/api/sessions", chatHandler.ListSessions).Methods("GET")
	root.HandleFunc("/api/sessions/{sessionId}", chatHandler.RenameSession).Methods("PATCH")
	root.HandleFunc("/api/sessions/{sessionId}", chatHandler.DeleteSession).Methods("DELETE")
	root.HandleFunc("/api/sessions/{sessionId}/messages", chatHandler.ListMessages).Methods("GET")
	root.HandleFunc("/api/sessions/{sessionId}/retreats", chatHandler.ListRetreats).Methods("GET")
	root.HandleFunc("/api/sessions/{sessionId}/send", chatHandler.Send).Methods("POST")

	// Chat
	root.HandleFunc("/api/send", chatHandler.Send).Methods("POST")

	// Payments and profile
	root.HandleFunc("/api/payments/confirm", chatHandler.ConfirmPayment).Methods("POST")
	root.HandleFunc("/api/profile", chatHandler.GetProfile).Methods("GET")

	// Health
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	return root
}
