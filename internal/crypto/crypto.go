// Package crypto implements the node's cryptographic primitives: X25519 key
// agreement + AES-256-GCM for envelope encryption, Ed25519 for signatures,
// and BLAKE2b for content addressing. spec.md §1 lists these primitives "by
// role" as an external collaborator's concern in the original system; this
// node owns them directly since no such collaborator was retrieved in the
// examples pack.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"
)

const (
	// KeySize is the byte length of X25519 keys and of Ed25519 public keys
	// (32 bytes). Ed25519 private keys are 64 bytes and are kept as
	// ed25519.PrivateKey.
	KeySize = 32
	// nonceSize is the AES-GCM nonce length.
	nonceSize = 12
)

type (
	// EncryptionKeyPair is an X25519 key pair used for DH-derived envelope
	// encryption.
	EncryptionKeyPair struct {
		Public  [KeySize]byte
		Private [KeySize]byte
	}

	// SignatureKeyPair is an Ed25519 key pair used for envelope signing.
	SignatureKeyPair struct {
		Public  ed25519.PublicKey
		Private ed25519.PrivateKey
	}
)

// GenerateEncryptionKeyPair creates a fresh X25519 key pair.
func GenerateEncryptionKeyPair() (EncryptionKeyPair, error) {
	var priv [KeySize]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return EncryptionKeyPair{}, fmt.Errorf("generate x25519 private key: %w", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return EncryptionKeyPair{}, fmt.Errorf("derive x25519 public key: %w", err)
	}
	var kp EncryptionKeyPair
	kp.Private = priv
	copy(kp.Public[:], pub)
	return kp, nil
}

// GenerateSignatureKeyPair creates a fresh Ed25519 key pair.
func GenerateSignatureKeyPair() (SignatureKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SignatureKeyPair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return SignatureKeyPair{Public: pub, Private: priv}, nil
}

// SharedSecret derives a DH shared secret between a local private key and a
// remote public key, suitable as AEAD key material after hashing.
func SharedSecret(localPrivate, remotePublic [KeySize]byte) ([KeySize]byte, error) {
	shared, err := curve25519.X25519(localPrivate[:], remotePublic[:])
	if err != nil {
		return [KeySize]byte{}, fmt.Errorf("x25519 shared secret: %w", err)
	}
	// Hash the raw DH output into a uniform AEAD key rather than using it
	// directly, following standard X25519-AEAD practice.
	key := blake2b.Sum256(shared)
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM under the given key, prefixing
// the ciphertext with a random nonce. additionalData is authenticated but
// not encrypted; the node's own callers pass nil.
func Seal(key [KeySize]byte, plaintext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, additionalData)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Open decrypts a Seal-produced ciphertext.
func Open(key [KeySize]byte, ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, additionalData)
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return plaintext, nil
}

// Sign signs a message with an Ed25519 private key.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}

// Verify verifies an Ed25519 signature.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	return ed25519.Verify(pub, message, sig)
}

// ContentHash returns the BLAKE2b-256 digest of data, used for content
// addressing message records (spec §3) and key-schema hash truncation
// (spec §4.1). BLAKE3 is referenced by role in spec.md §1 but is not
// available anywhere in the retrieved example pack; BLAKE2b is the closest
// corpus-adjacent primitive (golang.org/x/crypto) and gives the same fixed-
// length, collision-resistant digest the key schemas depend on.
func ContentHash(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// TruncatedHash returns the first n bytes of ContentHash(data), used to keep
// reverse-index key prefixes fixed-length (spec §4.1, `jobinbox_agent_<hash>`).
func TruncatedHash(data []byte, n int) []byte {
	h := ContentHash(data)
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}
