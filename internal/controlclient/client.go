// Package controlclient is a thin SDK over the control plane's
// JSON-over-HTTP API: a single HTTP wrapper hiding marshal/status-check
// boilerplate behind typed methods.
package controlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("controlclient: not found")

// Client talks to one node's control plane.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client against baseURL (e.g. "http://localhost:3000").
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controlclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("controlclient: decode response: %w", err)
	}
	if !env.Success {
		msg := "request failed"
		if env.Error != nil {
			msg = env.Error.Message
		}
		return fmt.Errorf("controlclient: %s", msg)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// Health hits GET /health.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// NodeInfo hits GET /api/node/info.
func (c *Client) NodeInfo(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodGet, "/api/node/info", nil, &out)
}

// ListPeers hits GET /api/peers.
func (c *Client) ListPeers(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodGet, "/api/peers", nil, &out)
}

// DialPeer hits POST /api/peers/{peerId}.
func (c *Client) DialPeer(ctx context.Context, peerID, address string) error {
	return c.do(ctx, http.MethodPost, "/api/peers/"+peerID, map[string]string{"address": address}, nil)
}

// HangUpPeer hits DELETE /api/peers/{peerId}.
func (c *Client) HangUpPeer(ctx context.Context, peerID string) error {
	return c.do(ctx, http.MethodDelete, "/api/peers/"+peerID, nil, nil)
}

// SendMessage hits POST /api/messages/send.
func (c *Client) SendMessage(ctx context.Context, to, payload string) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodPost, "/api/messages/send", map[string]string{"to": to, "payload": payload}, &out)
}

// Inbox hits GET /api/messages/inbox.
func (c *Client) Inbox(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodGet, "/api/messages/inbox", nil, &out)
}

// Outbox hits GET /api/messages/outbox.
func (c *Client) Outbox(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodGet, "/api/messages/outbox", nil, &out)
}

// ListContacts hits GET /api/database/contacts.
func (c *Client) ListContacts(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodGet, "/api/database/contacts", nil, &out)
}

// UpsertContact hits POST /api/database/contacts.
func (c *Client) UpsertContact(ctx context.Context, peerID, alias string) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodPost, "/api/database/contacts", map[string]string{"peerId": peerID, "alias": alias}, &out)
}

// DeleteContact hits DELETE /api/database/contacts/{peerId}.
func (c *Client) DeleteContact(ctx context.Context, peerID string) error {
	return c.do(ctx, http.MethodDelete, "/api/database/contacts/"+peerID, nil, nil)
}
