// Package cipher encrypts user content at rest with a single static key.
//
// The primitive is XChaCha20-Poly1305 (authenticated encryption). Each Seal
// draws a fresh random 24-byte nonce and stores it in front of the
// ciphertext, so sealing the same text twice gives different bytes:
//
//	nonce (24 bytes) || ciphertext || tag (16 bytes)
//
// There is no key rotation and no envelope scheme. Rows sealed under an old
// key simply come back as Unreadable.
package cipher

import (
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required key length in bytes.
const KeySize = chacha20poly1305.KeySize

// Placeholder replaces content that could not be decrypted.
const Placeholder = "[content unavailable]"

var (
	ErrKeySize   = fmt.Errorf("cipher: key must be %d bytes", KeySize)
	ErrShortData = errors.New("cipher: ciphertext too short")
)

// Cipher seals and opens content with one key. Safe for concurrent use.
type Cipher struct {
	aead stdcipher.AEAD
}

// New creates a Cipher from a raw 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: creating AEAD: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// FromBase64 decodes a standard or URL-safe base64 key and creates a Cipher.
func FromBase64(encoded string) (*Cipher, error) {
	key, err := DecodeKey(encoded)
	if err != nil {
		return nil, err
	}
	return New(key)
}

// DecodeKey accepts standard and URL-safe base64, padded or not.
func DecodeKey(encoded string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(encoded); err == nil {
			if len(key) != KeySize {
				return nil, ErrKeySize
			}
			return key, nil
		}
	}
	return nil, errors.New("cipher: key is not valid base64")
}

// GenerateKey returns a new random key, base64 encoded. Handy for bootstrapping
// a deployment: ENCRYPTION_KEY=$(socialfeed keygen).
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("cipher: generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (c *Cipher) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cipher: generating nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts data produced by Seal. It never returns an error: failures
// come back as Unreadable so callers decide on a fallback per row.
func (c *Cipher) Open(data []byte) Result {
	ns := c.aead.NonceSize()
	if len(data) < ns+c.aead.Overhead() {
		return Unreadable{Err: ErrShortData}
	}

	plain, err := c.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return Unreadable{Err: fmt.Errorf("cipher: opening: %w", err)}
	}
	return Decrypted{Text: string(plain)}
}
