/*
File Name:  AEAD.go

C2 AEAD: AES-256-GCM encryption for packet payloads. Built on the
standard library (crypto/aes + crypto/cipher) rather than a
third-party AEAD package — see DESIGN.md for why that choice is kept
standard-library here despite the rest of this module's preference for
the reference corpus's dependency stack: AES-256-GCM is fully
specified by the wire format (key size, nonce size, tag placement),
and the stdlib's implementation is the idiomatic choice for exactly
this primitive across the wider Go ecosystem.

No associated data is mixed into the AEAD call: the outer frame header
(magic, data_len, action, iv) is not authenticated, only the payload
is. This is a deliberate, documented limitation of the wire format,
not an oversight here.
*/

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// NonceSize is the length, in bytes, of the AES-GCM nonce carried as a packet's IV.
const NonceSize = 12

// TagSize is the length, in bytes, of the GCM authentication tag appended to ciphertext.
const TagSize = 16

// ErrEncryptionFailure is returned when Open fails to authenticate ciphertext, whether due to
// a wrong key, a corrupted frame, or tampering.
var ErrEncryptionFailure = errors.New("crypto: encryption failure")

func newGCM(key [KeySize]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

// NewNonce draws a fresh cryptographically random 96-bit nonce. A new nonce MUST be generated
// for every sealed packet; nonce reuse under the same key breaks GCM's confidentiality.
func NewNonce() (nonce [NonceSize]byte, err error) {
	_, err = rand.Read(nonce[:])
	return nonce, err
}

// Seal encrypts plaintext under key and nonce, returning ciphertext with the 16-byte GCM tag
// appended. No associated data is authenticated.
func Seal(key [KeySize]byte, nonce [NonceSize]byte, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, nil), nil
}

// Open decrypts ciphertext (with its trailing tag) under key and nonce. Any authentication
// failure, truncation, or tampering returns ErrEncryptionFailure.
func Open(key [KeySize]byte, nonce [NonceSize]byte, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, ErrEncryptionFailure
	}
	return plaintext, nil
}
