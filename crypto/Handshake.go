/*
File Name:  Handshake.go

C3 Handshake: ephemeral X25519 keypair generation and shared-secret
derivation. The 32-byte raw Diffie-Hellman output is used directly as
the AES-256-GCM key — no KDF is applied. This mirrors the wire
contract spelled out for this protocol: the risk of skipping a KDF
(and of an unauthenticated handshake in general) is a known, accepted
weakness rather than an oversight.
*/

package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// ErrLowOrderPoint is returned when the remote's public key is a low-order point, which would
// make the derived "secret" computable by any passive observer.
var ErrLowOrderPoint = errors.New("crypto: low-order point in X25519 exchange")

// KeySize is the length, in bytes, of an X25519 public key, private scalar, and derived secret.
const KeySize = 32

// GenerateEphemeral produces a fresh X25519 keypair for a single handshake. The private scalar
// never leaves the process and must be discarded after DeriveShared is called.
func GenerateEphemeral() (private, public [KeySize]byte, err error) {
	if _, err = rand.Read(private[:]); err != nil {
		return private, public, err
	}
	curve25519.ScalarBaseMult(&public, &private)
	return private, public, nil
}

// DeriveShared performs the Diffie-Hellman exchange and returns the raw 32-byte output, used
// unmodified as the session's AES-256-GCM key.
func DeriveShared(private [KeySize]byte, remotePublic [KeySize]byte) (secret [KeySize]byte, err error) {
	out, err := curve25519.X25519(private[:], remotePublic[:])
	if err != nil {
		return secret, ErrLowOrderPoint
	}
	copy(secret[:], out)
	return secret, nil
}
