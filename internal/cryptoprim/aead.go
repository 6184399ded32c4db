package cryptoprim

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// KeySize is the size in bytes of an AES-256-GCM key.
const KeySize = 32

// NonceSize is the size in bytes of an AES-GCM nonce.
const NonceSize = 12

// ErrInvalidKeySize is returned when a key of the wrong length is supplied.
var ErrInvalidKeySize = errors.New("cryptoprim: invalid key size")

// Encrypt seals plaintext under key with a freshly generated nonce, using
// AES-256-GCM: the stdlib
// crypto/aes + crypto/cipher GCM construction is the idiomatic Go way to
// implement this exact primitive, so no third-party AEAD library is
// substituted here (see DESIGN.md).
func Encrypt(key []byte, plaintext, additionalData []byte) (ciphertext, nonce []byte, err error) {
	if len(key) != KeySize {
		return nil, nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, additionalData)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext (with its appended 128-bit tag) under key and nonce.
func Decrypt(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, additionalData)
}
