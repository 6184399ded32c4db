package router

import (
	"crypto/ed25519"
	"sync"
)

// PeerKeys is what the router needs to know about a remote peer to
// encrypt to it and verify its signatures: its identity
// signing key and its X25519 static key-agreement key. In a full
// overlay these arrive via the handshake protocol on
// /yapyap/handshake/1.0.0; this directory is the in-memory cache of
// that exchange, queried before every encrypt/verify.
type PeerKeys struct {
	SigningPublicKey ed25519.PublicKey
	StaticPublicKey  [32]byte
}

// Directory is a concurrency-safe map from peer id to known keys.
type Directory struct {
	mu    sync.RWMutex
	peers map[string]PeerKeys
}

// NewDirectory constructs an empty Directory.
func NewDirectory() *Directory {
	return &Directory{peers: make(map[string]PeerKeys)}
}

// Register records (or replaces) a peer's known keys, e.g. after a
// successful handshake.
func (d *Directory) Register(peerID string, keys PeerKeys) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[peerID] = keys
}

// Lookup returns a peer's keys, if known.
func (d *Directory) Lookup(peerID string) (PeerKeys, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	k, ok := d.peers[peerID]
	return k, ok
}
