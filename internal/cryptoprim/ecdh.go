package cryptoprim

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// EphemeralKeySize is the size in bytes of an X25519 key.
const EphemeralKeySize = 32

// EphemeralKeyPair is a one-shot X25519 keypair generated per message.
type EphemeralKeyPair struct {
	PrivateKey [EphemeralKeySize]byte
	PublicKey  [EphemeralKeySize]byte
}

// GenerateEphemeral creates a new X25519 keypair, clamped per the
// curve25519 scalar convention.
func GenerateEphemeral() (EphemeralKeyPair, error) {
	var kp EphemeralKeyPair
	if _, err := rand.Read(kp.PrivateKey[:]); err != nil {
		return EphemeralKeyPair{}, err
	}
	kp.PrivateKey[0] &= 248
	kp.PrivateKey[31] &= 127
	kp.PrivateKey[31] |= 64

	pub, err := curve25519.X25519(kp.PrivateKey[:], curve25519.Basepoint)
	if err != nil {
		return EphemeralKeyPair{}, err
	}
	copy(kp.PublicKey[:], pub)
	return kp, nil
}

// SharedSecret computes the ECDH shared secret between this keypair's
// private key and a remote static or ephemeral public key.
func (kp EphemeralKeyPair) SharedSecret(remotePublic [EphemeralKeySize]byte) ([]byte, error) {
	secret, err := curve25519.X25519(kp.PrivateKey[:], remotePublic[:])
	if err != nil {
		return nil, err
	}
	if allZero(secret) {
		// curve25519 can yield an all-zero output for low-order points;
		// reject it rather than deriving keys from it.
		return nil, errors.New("cryptoprim: low-order ECDH result")
	}
	return secret, nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
