// Package session implements the Session Registry: one
// active end-to-end key-agreement session per remote peer, holding the
// ephemeral keypair and derived AEAD keys until expiry. The envelope
// layer (cryptoprim.EncryptPayload) derives its own per-message key and
// does not read these sessions. It is grounded on the
// teacher's device/peer.go, which keeps exactly this kind of
// per-remote-identity handshake state (a mutex-guarded struct keyed by
// peer, with an expiry timer) rather than a fresh handshake per packet.
package session

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yapyap/node/internal/cryptoprim"
	"github.com/yapyap/node/internal/store"
)

// Session is one live key-agreement session with a remote peer.
type Session struct {
	ID            string
	RemotePeerID  string
	Local         cryptoprim.EphemeralKeyPair
	EncryptionKey []byte
	DecryptionKey []byte
	CreatedAt     time.Time
	ExpiresAt     time.Time
	LastUsed      time.Time
}

func (s *Session) expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// Registry owns every live session in a map guarded by a single mutex.
type Registry struct {
	mu     sync.Mutex
	byID   map[string]*Session
	byPeer map[string][]*Session
	store  *store.Store
	expiry time.Duration
	log    *logrus.Entry
}

// New constructs an empty Registry. Sessions persisted by an earlier
// run are not loaded back, so after a restart every peer negotiates a
// fresh session on first use.
func New(st *store.Store, expiry time.Duration, log *logrus.Logger) (*Registry, error) {
	if log == nil {
		log = logrus.New()
	}
	r := &Registry{
		byID:   make(map[string]*Session),
		byPeer: make(map[string][]*Session),
		store:  st,
		expiry: expiry,
		log:    log.WithField("component", "session"),
	}
	return r, nil
}

// Create negotiates a fresh session against a remote peer's static
// X25519 public key: generates a local ephemeral keypair, computes the
// ECDH shared secret, derives the encryption/decryption keys via HKDF,
// and persists the result.
func (r *Registry) Create(remotePeerID string, remoteStaticPublic [cryptoprim.EphemeralKeySize]byte) (*Session, error) {
	local, err := cryptoprim.GenerateEphemeral()
	if err != nil {
		return nil, fmt.Errorf("session: generate ephemeral: %w", err)
	}
	shared, err := local.SharedSecret(remoteStaticPublic)
	if err != nil {
		return nil, fmt.Errorf("session: ecdh: %w", err)
	}
	salt := make([]byte, cryptoprim.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("session: salt: %w", err)
	}
	encKey, decKey, err := cryptoprim.DeriveSessionKeys(shared, salt)
	if err != nil {
		return nil, fmt.Errorf("session: derive keys: %w", err)
	}

	now := time.Now()
	id := fmt.Sprintf("%s-%d", remotePeerID, now.UnixNano())
	sess := &Session{
		ID:            id,
		RemotePeerID:  remotePeerID,
		Local:         local,
		EncryptionKey: encKey,
		DecryptionKey: decKey,
		CreatedAt:     now,
		ExpiresAt:     now.Add(r.expiry),
		LastUsed:      now,
	}

	if r.store != nil {
		rec := store.SessionRecord{
			SessionID:             sess.ID,
			RemotePeerID:          sess.RemotePeerID,
			LocalEphemeralPrivate: append([]byte(nil), sess.Local.PrivateKey[:]...),
			LocalEphemeralPublic:  append([]byte(nil), sess.Local.PublicKey[:]...),
			EncryptionKey:         sess.EncryptionKey,
			DecryptionKey:         sess.DecryptionKey,
			CreatedAt:             sess.CreatedAt,
			ExpiresAt:             sess.ExpiresAt,
			LastUsed:              sess.LastUsed,
			Active:                true,
		}
		if err := r.store.SaveSession(rec); err != nil {
			return nil, fmt.Errorf("session: persist: %w", err)
		}
	}

	r.mu.Lock()
	r.byID[sess.ID] = sess
	r.byPeer[remotePeerID] = append(r.byPeer[remotePeerID], sess)
	r.mu.Unlock()
	r.log.WithField("peer", remotePeerID).Debug("session created")
	return sess, nil
}

// GetOrCreate returns an unexpired active session for remotePeerID,
// creating one if none exists.
func (r *Registry) GetOrCreate(remotePeerID string, remoteStaticPublic [cryptoprim.EphemeralKeySize]byte) (*Session, error) {
	if sess := r.activeOne(remotePeerID); sess != nil {
		return sess, nil
	}
	return r.Create(remotePeerID, remoteStaticPublic)
}

// GetByID returns a session by id.
func (r *Registry) GetByID(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

// ActiveFor returns every unexpired session for a remote peer.
func (r *Registry) ActiveFor(remotePeerID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*Session
	for _, s := range r.byPeer[remotePeerID] {
		if !s.expired(now) {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) activeOne(remotePeerID string) *Session {
	active := r.ActiveFor(remotePeerID)
	if len(active) == 0 {
		return nil
	}
	return active[0]
}

// Touch records session use, extending last-used bookkeeping without
// changing expiry.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	sess, ok := r.byID[id]
	if ok {
		sess.LastUsed = time.Now()
	}
	r.mu.Unlock()
	if ok && r.store != nil {
		_ = r.store.SaveSession(toRecord(sess))
	}
}

// Invalidate deactivates a session by id.
func (r *Registry) Invalidate(id string) error {
	r.mu.Lock()
	sess, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
		peers := r.byPeer[sess.RemotePeerID]
		for i, s := range peers {
			if s.ID == id {
				r.byPeer[sess.RemotePeerID] = append(peers[:i], peers[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()
	if r.store != nil {
		return r.store.InvalidateSession(id)
	}
	return nil
}

// CleanupExpired drops expired sessions from memory and the store.
func (r *Registry) CleanupExpired() int {
	r.mu.Lock()
	now := time.Now()
	var expiredIDs []string
	for id, s := range r.byID {
		if s.expired(now) {
			expiredIDs = append(expiredIDs, id)
			delete(r.byID, id)
		}
	}
	for _, id := range expiredIDs {
		for peer, sessions := range r.byPeer {
			for i, s := range sessions {
				if s.ID == id {
					r.byPeer[peer] = append(sessions[:i], sessions[i+1:]...)
					break
				}
			}
		}
	}
	r.mu.Unlock()
	if r.store != nil {
		if _, err := r.store.CleanupExpiredSessions(); err != nil {
			r.log.WithError(err).Warn("cleanup expired sessions in store")
		}
	}
	return len(expiredIDs)
}

func toRecord(s *Session) store.SessionRecord {
	return store.SessionRecord{
		SessionID:             s.ID,
		RemotePeerID:          s.RemotePeerID,
		LocalEphemeralPrivate: append([]byte(nil), s.Local.PrivateKey[:]...),
		LocalEphemeralPublic:  append([]byte(nil), s.Local.PublicKey[:]...),
		EncryptionKey:         s.EncryptionKey,
		DecryptionKey:         s.DecryptionKey,
		CreatedAt:             s.CreatedAt,
		ExpiresAt:             s.ExpiresAt,
		LastUsed:              s.LastUsed,
		Active:                true,
	}
}
