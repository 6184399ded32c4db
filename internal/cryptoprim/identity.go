// Package cryptoprim implements the identity signing, ephemeral key
// agreement, authenticated encryption, and key derivation primitives the
// router depends on.
package cryptoprim

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature is returned when a detached signature fails to
// verify against the claimed public key.
var ErrInvalidSignature = errors.New("cryptoprim: invalid signature")

// IdentityKeyPair is a node's long-lived Ed25519 signing keypair. The
// public half, hex-encoded, is also the node's peer id.
type IdentityKeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateIdentity creates a new signing keypair.
func GenerateIdentity() (IdentityKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return IdentityKeyPair{}, err
	}
	return IdentityKeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// PeerID returns the canonical string representation of this identity's
// public key, used throughout the router as the peer identifier.
func (k IdentityKeyPair) PeerID() string {
	return hex.EncodeToString(k.PublicKey)
}

// PeerIDFromPublicKey hex-encodes a raw public key into a peer id.
func PeerIDFromPublicKey(pub ed25519.PublicKey) string {
	return hex.EncodeToString(pub)
}

// PublicKeyFromPeerID decodes a peer id back into a raw public key.
func PublicKeyFromPeerID(peerID string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(peerID)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("cryptoprim: invalid peer id length")
	}
	return ed25519.PublicKey(raw), nil
}

// Sign produces a detached signature over data.
func (k IdentityKeyPair) Sign(data []byte) []byte {
	return ed25519.Sign(k.PrivateKey, data)
}

// Verify checks a detached signature over data against pub.
func Verify(pub ed25519.PublicKey, data, signature []byte) error {
	if !ed25519.Verify(pub, data, signature) {
		return ErrInvalidSignature
	}
	return nil
}
