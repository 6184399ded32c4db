package cryptoprim

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/yapyap/node/internal/codec"
)

// StaticKeyPair is a node's long-lived X25519 key agreement keypair,
// distinct from its Ed25519 identity signing keypair. Its public half is
// what peers look up to perform end-to-end encryption toward this node.
type StaticKeyPair = EphemeralKeyPair

// SaltSize is the size in bytes of the HKDF salt carried in an envelope.
const SaltSize = 16

// Envelope is the closed variant carried as a message payload when a
// data message is end-to-end encrypted: ciphertext,
// nonce, ephemeral public key, and a signature over the plaintext.
type Envelope struct {
	Ciphertext         []byte
	Nonce              []byte
	Salt               []byte
	EphemeralPublicKey [EphemeralKeySize]byte
	Signature          []byte
}

// ErrDecryptionFailed wraps any failure to authenticate or decode an
// incoming envelope.
var ErrDecryptionFailed = errors.New("cryptoprim: envelope decryption failed")

// EncryptPayload implements the send-side of : generate an
// ephemeral ECDH keypair, compute the shared secret with the recipient's
// static public key, derive a session key via HKDF, encrypt the
// serialized payload, and sign the plaintext with the sender's identity key.
func EncryptPayload(payload codec.Value, sender IdentityKeyPair, recipientStaticPublic [EphemeralKeySize]byte) (Envelope, error) {
	ephemeral, err := GenerateEphemeral()
	if err != nil {
		return Envelope{}, err
	}
	shared, err := ephemeral.SharedSecret(recipientStaticPublic)
	if err != nil {
		return Envelope{}, err
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return Envelope{}, err
	}
	encKey, _, err := DeriveSessionKeys(shared, salt)
	if err != nil {
		return Envelope{}, err
	}

	plaintext, err := codec.Encode(payload)
	if err != nil {
		return Envelope{}, err
	}
	ciphertext, nonce, err := Encrypt(encKey, plaintext, nil)
	if err != nil {
		return Envelope{}, err
	}
	signature := sender.Sign(plaintext)

	return Envelope{
		Ciphertext:         ciphertext,
		Nonce:              nonce,
		Salt:               salt,
		EphemeralPublicKey: ephemeral.PublicKey,
		Signature:          signature,
	}, nil
}

// DecryptPayload reverses EncryptPayload: recomputes the shared secret
// using the recipient's static private key and the envelope's ephemeral
// public key, derives the same session key, decrypts, and rejects the
// message outright if the signature does not verify against the sender's
// identity public key.
func DecryptPayload(env Envelope, recipient StaticKeyPair, senderPublicKey ed25519.PublicKey) (codec.Value, error) {
	shared, err := recipient.SharedSecret(env.EphemeralPublicKey)
	if err != nil {
		return codec.Value{}, ErrDecryptionFailed
	}
	encKey, _, err := DeriveSessionKeys(shared, env.Salt)
	if err != nil {
		return codec.Value{}, ErrDecryptionFailed
	}
	plaintext, err := Decrypt(encKey, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return codec.Value{}, ErrDecryptionFailed
	}
	if err := Verify(senderPublicKey, plaintext, env.Signature); err != nil {
		return codec.Value{}, ErrDecryptionFailed
	}
	v, _, err := codec.Decode(plaintext)
	if err != nil {
		return codec.Value{}, ErrDecryptionFailed
	}
	return v, nil
}

// ToValue serializes the envelope into the wire map shape from :
// { encrypted: true, ciphertext, nonce, ephemeralPublicKey, signature },
// with byte fields carried as raw codec bytes. Salt is carried alongside under
// the same map for session-key re-derivation on the receiving end.
func (e Envelope) ToValue() codec.Value {
	return codec.Map(map[string]codec.Value{
		"encrypted":          codec.Bool(true),
		"ciphertext":         codec.Bytes(e.Ciphertext),
		"nonce":               codec.Bytes(e.Nonce),
		"salt":               codec.Bytes(e.Salt),
		"ephemeralPublicKey": codec.Bytes(e.EphemeralPublicKey[:]),
		"signature":          codec.Bytes(e.Signature),
	})
}

// EnvelopeFromValue parses the wire shape produced by ToValue.
func EnvelopeFromValue(v codec.Value) (Envelope, error) {
	ciphertext, _ := v.GetBytes("ciphertext")
	nonce, _ := v.GetBytes("nonce")
	salt, _ := v.GetBytes("salt")
	ephemeral, ok := v.GetBytes("ephemeralPublicKey")
	if !ok || len(ephemeral) != EphemeralKeySize {
		return Envelope{}, errors.New("cryptoprim: malformed envelope ephemeral key")
	}
	signature, _ := v.GetBytes("signature")

	var pk [EphemeralKeySize]byte
	copy(pk[:], ephemeral)
	return Envelope{
		Ciphertext:         ciphertext,
		Nonce:              nonce,
		Salt:               salt,
		EphemeralPublicKey: pk,
		Signature:          signature,
	}, nil
}

// IsEncryptedEnvelope reports whether v is a payload map produced by
// ToValue.
func IsEncryptedEnvelope(v codec.Value) bool {
	if v.Kind != codec.KindMap {
		return false
	}
	flag, ok := v.Get("encrypted")
	return ok && flag.Kind == codec.KindBool && flag.Bool
}
