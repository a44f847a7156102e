package api

import (
	"encoding/json"
	"net/http"

	"github.com/retreatscout/retreat-scout/internal/api/respond"
	"github.com/retreatscout/retreat-scout/internal/api/validate"
	"github.com/retreatscout/retreat-scout/internal/chat"
	"github.com/retreatscout/retreat-scout/internal/identity"
)

// AuthHandler is the HTTP transport for registration and sign-in.
type AuthHandler struct {
	ids *identity.Service
	hub *chat.Hub
}

func NewAuthHandler(ids *identity.Service, hub *chat.Hub) *AuthHandler {
	return &AuthHandler{ids: ids, hub: hub}
}

type authResponse struct {
	Token string             `json:"token"`
	User  *identity.Identity `json:"user"`
}

// SignUp POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	var fullName *string
	if in.FullName != "" {
		fullName = &in.FullName
	}
	if err := validate.SignUp(in.Email, in.Password, fullName); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	id, token, err := h.ids.SignUp(r.Context(), in.Email, in.Password, in.FullName)
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, authResponse{Token: token, User: id})
}

// SignIn POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	id, token, err := h.ids.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, authResponse{Token: token, User: id})
}

// SignOut POST /api/auth/signout
// Tokens stay valid until expiry; this drops the server-side
// conversation state so the next sign-in starts clean.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	h.hub.Drop(id.UserID)
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}
