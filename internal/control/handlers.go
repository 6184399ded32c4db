package control

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/router"
	"github.com/yapyap/node/internal/store"
	"github.com/yapyap/node/internal/wire"
)

// Handler holds every collaborator the control plane's routes need.
type Handler struct {
	router *router.Router
	store  *store.Store
	events *eventHub
}

// NewHandler constructs a Handler wired to a running Router and Store.
func NewHandler(r *router.Router, st *store.Store, events *eventHub) *Handler {
	return &Handler{router: r, store: st, events: events}
}

// Register mounts every control-plane route on the gin engine.
func (h *Handler) Register(e *gin.Engine) {
	e.GET("/health", h.Health)
	e.GET("/api/node/info", h.NodeInfo)

	e.GET("/api/peers", h.ListPeers)
	e.POST("/api/peers/:peerId", h.DialPeer)
	e.DELETE("/api/peers/:peerId", h.HangUpPeer)

	e.POST("/api/messages/send", h.SendMessage)
	e.GET("/api/messages/inbox", h.Inbox)
	e.GET("/api/messages/outbox", h.Outbox)

	contacts := e.Group("/api/database/contacts")
	contacts.GET("", h.ListContacts)
	contacts.GET("/:peerId", h.GetContact)
	contacts.POST("", h.UpsertContact)
	contacts.DELETE("/:peerId", h.DeleteContact)

	e.GET("/ws", h.events.serveWebSocket)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// NodeInfo handles GET /api/node/info.
func (h *Handler) NodeInfo(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"peerId": h.router.SelfID()})
}

// ListPeers handles GET /api/peers.
func (h *Handler) ListPeers(c *gin.Context) {
	peers, err := h.router.ListPeers()
	if err != nil {
		fail(c, http.StatusInternalServerError, "list peers failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"peers": peers})
}

// DialPeer handles POST /api/peers/{peerId}. Body: {"address": "host:port"}.
func (h *Handler) DialPeer(c *gin.Context) {
	peerID := c.Param("peerId")
	var body struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if err := h.router.Connect(ctx, peerID, body.Address); err != nil {
		fail(c, http.StatusBadGateway, "dial failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"peerId": peerID, "address": body.Address})
}

// HangUpPeer handles DELETE /api/peers/{peerId}.
func (h *Handler) HangUpPeer(c *gin.Context) {
	peerID := c.Param("peerId")
	if err := h.router.Disconnect(peerID); err != nil {
		fail(c, http.StatusInternalServerError, "hang up failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"peerId": peerID})
}

// SendMessage handles POST /api/messages/send. Body:
// {"to"|"targetId": "...", "payload": "..."}.
func (h *Handler) SendMessage(c *gin.Context) {
	var body struct {
		To       string `json:"to"`
		TargetID string `json:"targetId"`
		Payload  string `json:"payload"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	to := body.To
	if to == "" {
		to = body.TargetID
	}
	if to == "" {
		fail(c, http.StatusBadRequest, "to or targetId is required", nil)
		return
	}

	// Send assigns an id only on its own copy, so set it here for the
	// response to report it.
	m := wire.Message{
		ID:      uuid.NewString(),
		Type:    wire.KindData,
		From:    h.router.SelfID(),
		To:      to,
		Payload: codec.String(body.Payload),
	}
	if err := h.router.Send(c.Request.Context(), m); err != nil {
		fail(c, http.StatusBadGateway, "send failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": m.ID})
}

// Inbox handles GET /api/messages/inbox.
func (h *Handler) Inbox(c *gin.Context) {
	msgs, err := h.router.Inbox(200)
	if err != nil {
		fail(c, http.StatusInternalServerError, "inbox failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"messages": msgs})
}

// Outbox handles GET /api/messages/outbox.
func (h *Handler) Outbox(c *gin.Context) {
	msgs, err := h.router.Outbox(200)
	if err != nil {
		fail(c, http.StatusInternalServerError, "outbox failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"messages": msgs})
}

// ListContacts handles GET /api/database/contacts?q=.
func (h *Handler) ListContacts(c *gin.Context) {
	q := c.Query("q")
	var (
		contacts []store.Contact
		err      error
	)
	if q != "" {
		contacts, err = h.store.SearchContacts(q)
	} else {
		contacts, err = h.store.ListContacts()
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "list contacts failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"contacts": contacts})
}

// GetContact handles GET /api/database/contacts/{peerId}.
func (h *Handler) GetContact(c *gin.Context) {
	contact, err := h.store.GetContact(c.Param("peerId"))
	if err == store.ErrNotFound {
		fail(c, http.StatusNotFound, "contact not found", nil)
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "get contact failed", err)
		return
	}
	ok(c, http.StatusOK, contact)
}

// UpsertContact handles POST /api/database/contacts.
func (h *Handler) UpsertContact(c *gin.Context) {
	var body struct {
		PeerID    string `json:"peerId" binding:"required"`
		Alias     string `json:"alias"`
		Metadata  string `json:"metadata"`
		IsTrusted bool   `json:"isTrusted"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	contact := store.Contact{
		PeerID:    body.PeerID,
		Alias:     body.Alias,
		Metadata:  body.Metadata,
		IsTrusted: body.IsTrusted,
		LastSeen:  time.Now(),
	}
	if contact.Metadata == "" {
		contact.Metadata = "{}"
	}
	if err := h.store.UpsertContact(contact); err != nil {
		fail(c, http.StatusInternalServerError, "upsert contact failed", err)
		return
	}
	ok(c, http.StatusOK, contact)
}

// DeleteContact handles DELETE /api/database/contacts/{peerId}.
func (h *Handler) DeleteContact(c *gin.Context) {
	peerID := c.Param("peerId")
	if err := h.store.DeleteContact(peerID); err != nil {
		fail(c, http.StatusInternalServerError, "delete contact failed", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"peerId": peerID})
}
