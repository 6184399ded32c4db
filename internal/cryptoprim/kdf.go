package cryptoprim

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// infoEncryption and infoDecryption tag the HKDF expansion so encryption and decryption
// keys derived from the same shared secret are distinct.
const (
	infoEncryption = "yapyap session key: encryption"
	infoDecryption = "yapyap session key: decryption"
)

// DeriveSessionKeys expands a raw ECDH shared secret into a distinct
// encryption and decryption key via HKDF-SHA256, preferred over a bare
// SHA-256 truncation of the shared secret.
func DeriveSessionKeys(sharedSecret, salt []byte) (encryptionKey, decryptionKey []byte, err error) {
	encryptionKey, err = hkdfExpand(sharedSecret, salt, infoEncryption)
	if err != nil {
		return nil, nil, err
	}
	decryptionKey, err = hkdfExpand(sharedSecret, salt, infoDecryption)
	if err != nil {
		return nil, nil, err
	}
	return encryptionKey, decryptionKey, nil
}

func hkdfExpand(secret, salt []byte, info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, salt, []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
