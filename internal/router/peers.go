package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yapyap/node/internal/store"
)

// PeerInfo is the control-plane view of a known peer: its last-known
// address, whether the most recent dial succeeded, and reputation.
type PeerInfo struct {
	PeerID     string
	Address    string
	Connected  bool
	Reputation int
	LastSeen   time.Time
}

// peerBook tracks control-plane-initiated address hints and connection
// state separately from the durable routing cache, mirroring the
// teacher's device.peers map guarded by its own mutex.
type peerBook struct {
	mu        sync.Mutex
	addresses map[string]string
	connected map[string]bool
}

func newPeerBook() *peerBook {
	return &peerBook{addresses: make(map[string]string), connected: make(map[string]bool)}
}

// Connect records address as peerID's dial target and performs a
// reachability probe: dial, then close immediately, since every stream
// in this system is one-shot request-response.
func (r *Router) Connect(ctx context.Context, peerID, address string) error {
	r.peers.mu.Lock()
	r.peers.addresses[peerID] = address
	r.peers.mu.Unlock()

	conn, err := r.transport.DialProtocol(ctx, address)
	if err != nil {
		r.peers.mu.Lock()
		r.peers.connected[peerID] = false
		r.peers.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrNoRoute, err)
	}
	_ = conn.Close()

	r.peers.mu.Lock()
	r.peers.connected[peerID] = true
	r.peers.mu.Unlock()

	_ = r.store.UpsertRoutingEntry(store.RoutingEntry{
		PeerID:      peerID,
		Addresses:   []string{address},
		IsAvailable: true,
		LastSeen:    time.Now(),
		TTL:         r.cfg.SessionExpiry,
	})
	return nil
}

// Disconnect marks peerID unreachable and best-effort hangs up any
// outstanding stream.
func (r *Router) Disconnect(peerID string) error {
	r.peers.mu.Lock()
	r.peers.connected[peerID] = false
	r.peers.mu.Unlock()
	r.hangUp(peerID)
	return nil
}

// ListPeers merges the control-plane address book with the durable
// routing cache and reputation table into one view.
func (r *Router) ListPeers() ([]PeerInfo, error) {
	entries, err := r.store.ListRoutingEntries()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFault, err)
	}

	r.peers.mu.Lock()
	defer r.peers.mu.Unlock()

	seen := make(map[string]bool, len(entries))
	out := make([]PeerInfo, 0, len(entries))
	for _, e := range entries {
		addr := ""
		if len(e.Addresses) > 0 {
			addr = e.Addresses[0]
		}
		if a, ok := r.peers.addresses[e.PeerID]; ok {
			addr = a
		}
		out = append(out, PeerInfo{
			PeerID:     e.PeerID,
			Address:    addr,
			Connected:  r.peers.connected[e.PeerID],
			Reputation: r.reputation.Score(e.PeerID),
			LastSeen:   e.LastSeen,
		})
		seen[e.PeerID] = true
	}
	for peerID, addr := range r.peers.addresses {
		if seen[peerID] {
			continue
		}
		out = append(out, PeerInfo{
			PeerID:     peerID,
			Address:    addr,
			Connected:  r.peers.connected[peerID],
			Reputation: r.reputation.Score(peerID),
		})
	}
	return out, nil
}

// defaultResolveAddress consults the control-plane address book first,
// then the durable routing cache, so Send can reach a peer dialed only
// via the control plane and never persisted as a contact.
func (r *Router) defaultResolveAddress(peerID string) (string, bool) {
	r.peers.mu.Lock()
	if addr, ok := r.peers.addresses[peerID]; ok {
		r.peers.mu.Unlock()
		return addr, true
	}
	r.peers.mu.Unlock()

	entry, ok, err := r.store.GetRoutingEntry(peerID)
	if err != nil || !ok || len(entry.Addresses) == 0 {
		return "", false
	}
	return entry.Addresses[0], true
}
