package cryptoprim

import (
	"testing"

	"github.com/yapyap/node/internal/codec"
)

func TestIdentitySignVerify(t *testing.T) {
	id, err := GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("hello yapyap")
	sig := id.Sign(msg)
	if err := Verify(id.PublicKey, msg, sig); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := Verify(id.PublicKey, []byte("tampered"), sig); err == nil {
		t.Fatal("expected verify to fail for tampered message")
	}
}

func TestECDHSharedSecretMatches(t *testing.T) {
	a, err := GenerateEphemeral()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateEphemeral()
	if err != nil {
		t.Fatal(err)
	}
	secretAB, err := a.SharedSecret(b.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	secretBA, err := b.SharedSecret(a.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if string(secretAB) != string(secretBA) {
		t.Fatal("ECDH shared secrets do not match")
	}
}

func TestAEADRoundTrip(t *testing.T) {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	ciphertext, nonce, err := Encrypt(key, []byte("plaintext"), []byte("aad"))
	if err != nil {
		t.Fatal(err)
	}
	plaintext, err := Decrypt(key, nonce, ciphertext, []byte("aad"))
	if err != nil {
		t.Fatal(err)
	}
	if string(plaintext) != "plaintext" {
		t.Fatalf("got %q", plaintext)
	}
	if _, err := Decrypt(key, nonce, ciphertext, []byte("wrong-aad")); err == nil {
		t.Fatal("expected AEAD tag mismatch")
	}
}

func TestDeriveSessionKeysDistinct(t *testing.T) {
	secret := []byte("shared-secret-material-000000000")
	salt := []byte("salt")
	enc, dec, err := DeriveSessionKeys(secret, salt)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != KeySize || len(dec) != KeySize {
		t.Fatalf("unexpected key sizes: %d %d", len(enc), len(dec))
	}
	if string(enc) == string(dec) {
		t.Fatal("encryption and decryption keys must differ")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	sender, err := GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	recipientStatic, err := GenerateEphemeral()
	if err != nil {
		t.Fatal(err)
	}

	payload := codec.Map(map[string]codec.Value{"text": codec.String("hi")})
	env, err := EncryptPayload(payload, sender, recipientStatic.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := DecryptPayload(env, recipientStatic, sender.PublicKey)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if s, _ := decoded.GetString("text"); s != "hi" {
		t.Fatalf("got %q", s)
	}
}

func TestEnvelopeRejectsTamperedSignature(t *testing.T) {
	sender, _ := GenerateIdentity()
	recipientStatic, _ := GenerateEphemeral()
	payload := codec.String("secret")
	env, err := EncryptPayload(payload, sender, recipientStatic.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	env.Signature[0] ^= 0xFF

	if _, err := DecryptPayload(env, recipientStatic, sender.PublicKey); err != ErrDecryptionFailed {
		t.Fatalf("got %v, want ErrDecryptionFailed", err)
	}
}

func TestEnvelopeValueRoundTrip(t *testing.T) {
	sender, _ := GenerateIdentity()
	recipientStatic, _ := GenerateEphemeral()
	env, err := EncryptPayload(codec.String("x"), sender, recipientStatic.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	v := env.ToValue()
	if !IsEncryptedEnvelope(v) {
		t.Fatal("expected IsEncryptedEnvelope to be true")
	}
	parsed, err := EnvelopeFromValue(v)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecryptPayload(parsed, recipientStatic, sender.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := decoded.GetString(""); s != "" {
		// payload was a plain string, not a map; GetString("") must miss.
		t.Fatal("unexpected map access on scalar payload")
	}
	if decoded.Kind != codec.KindString || decoded.Str != "x" {
		t.Fatalf("got %+v", decoded)
	}
}
