package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/retreatscout/retreat-scout/internal/api/respond"
	"github.com/retreatscout/retreat-scout/internal/api/validate"
	"github.com/retreatscout/retreat-scout/internal/chat"
	"github.com/retreatscout/retreat-scout/internal/identity"
	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// ChatHandler is a thin HTTP transport over the per-user conversation
// controllers.
type ChatHandler struct {
	hub *chat.Hub
	st  store.Store
}

func NewChatHandler(hub *chat.Hub, st store.Store) *ChatHandler {
	return &ChatHandler{hub: hub, st: st}
}

// controller resolves the caller's conversation controller, writing the
// 401 itself when the request carries no identity.
func (h *ChatHandler) controller(w http.ResponseWriter, r *http.Request) (*chat.Controller, bool) {
	id := identity.FromContext(r.Context())
	if id == nil {
		respond.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	c, err := h.hub.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return c, true
}

// chatState is the conversation snapshot returned after a send.
type chatState struct {
	SessionID string           `json:"sessionId"`
	Messages  []chat.Entry     `json:"messages"`
	Retreats  []*model.Retreat `json:"retreats"`
	Locked    bool             `json:"locked"`
	Loading   bool             `json:"loading"`
}

func snapshot(c *chat.Controller) chatState {
	rs, locked := c.Retreats()
	return chatState{
		SessionID: c.SessionID(),
		Messages:  c.Transcript(),
		Retreats:  rs,
		Locked:    locked,
		Loading:   c.Loading(),
	}
}

// CreateSession POST /api/sessions
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in struct {
		Name string `json:"name,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respond.WriteBadRequest(w, "invalid json")
			return
		}
	}
	sess, err := c.CreateSession(r.Context(), in.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, sess)
}

// ListSessions GET /api/sessions
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	sessions, err := c.Sessions(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// RenameSession PATCH /api/sessions/{sessionId}
func (h *ChatHandler) RenameSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.SessionName(in.Name); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	sess, err := c.Rename(r.Context(), mux.Vars(r)["sessionId"], in.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sess)
}

// DeleteSession DELETE /api/sessions/{sessionId}
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := c.Delete(r.Context(), mux.Vars(r)["sessionId"]); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMessages GET /api/sessions/{sessionId}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	msgs, err := c.StoredMessages(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// ListRetreats GET /api/sessions/{sessionId}/retreats
func (h *ChatHandler) ListRetreats(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	rs, locked, err := c.StoredRetreats(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"retreats": rs,
		"count":    len(rs),
		"locked":   locked,
	})
}

// Send POST /api/send and POST /api/sessions/{sessionId}/send
// The session-scoped form switches to the target session first; the
// bare form sends into the active session, creating one lazily.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.MessageText(in.Text); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	if sessionID := mux.Vars(r)["sessionId"]; sessionID != "" && sessionID != c.SessionID() {
		if err := c.Switch(r.Context(), sessionID); err != nil {
			writeErr(w, err)
			return
		}
	}
	if err := c.SendText(r.Context(), in.Text); err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, snapshot(c))
}

// ConfirmPayment POST /api/payments/confirm
func (h *ChatHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var in struct {
		Amount float64 `json:"amount,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respond.WriteBadRequest(w, "invalid json")
			return
		}
	}
	prof, err := c.ConfirmPayment(r.Context(), in.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, prof)
}

// GetProfile GET /api/profile
func (h *ChatHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	prof, err := h.st.Profiles().Get(r.Context(), id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, prof)
}
