package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"time"

	"github.com/yapyap/node/internal/cryptoprim"
	"github.com/yapyap/node/internal/store"
)

// loadOrCreateIdentity returns this node's persisted signing and
// static key-agreement keypairs, generating and saving a fresh pair on
// first run.
func loadOrCreateIdentity(st *store.Store) (cryptoprim.IdentityKeyPair, cryptoprim.StaticKeyPair, error) {
	rec, err := st.LoadIdentity()
	if err == nil {
		pub, decErr := hex.DecodeString(rec.PublicKeyHex)
		if decErr != nil {
			return cryptoprim.IdentityKeyPair{}, cryptoprim.StaticKeyPair{}, decErr
		}
		identity := cryptoprim.IdentityKeyPair{
			PublicKey:  ed25519.PublicKey(pub),
			PrivateKey: ed25519.PrivateKey(rec.PrivateKey),
		}
		staticPub, decErr := hex.DecodeString(rec.StaticPublicKeyHex)
		if decErr != nil {
			return cryptoprim.IdentityKeyPair{}, cryptoprim.StaticKeyPair{}, decErr
		}
		var static cryptoprim.StaticKeyPair
		copy(static.PublicKey[:], staticPub)
		copy(static.PrivateKey[:], rec.StaticPrivateKey)
		return identity, static, nil
	}
	if err != store.ErrNotFound {
		return cryptoprim.IdentityKeyPair{}, cryptoprim.StaticKeyPair{}, err
	}

	identity, err := cryptoprim.GenerateIdentity()
	if err != nil {
		return cryptoprim.IdentityKeyPair{}, cryptoprim.StaticKeyPair{}, err
	}
	static, err := cryptoprim.GenerateEphemeral()
	if err != nil {
		return cryptoprim.IdentityKeyPair{}, cryptoprim.StaticKeyPair{}, err
	}

	err = st.SaveIdentity(store.NodeIdentity{
		PublicKeyHex:       hex.EncodeToString(identity.PublicKey),
		PrivateKey:         identity.PrivateKey,
		StaticPublicKeyHex: hex.EncodeToString(static.PublicKey[:]),
		StaticPrivateKey:   static.PrivateKey[:],
		CreatedAt:          time.Now(),
	})
	if err != nil {
		return cryptoprim.IdentityKeyPair{}, cryptoprim.StaticKeyPair{}, err
	}
	return identity, static, nil
}
