package crypto

import (
	"bytes"
	"testing"
)

func TestHandshakeAgreement(t *testing.T) {
	aPriv, aPub, err := GenerateEphemeral()
	if err != nil {
		t.Fatalf("generate A: %v", err)
	}
	bPriv, bPub, err := GenerateEphemeral()
	if err != nil {
		t.Fatalf("generate B: %v", err)
	}

	aSecret, err := DeriveShared(aPriv, bPub)
	if err != nil {
		t.Fatalf("derive A: %v", err)
	}
	bSecret, err := DeriveShared(bPriv, aPub)
	if err != nil {
		t.Fatalf("derive B: %v", err)
	}

	if aSecret != bSecret {
		t.Fatalf("shared secrets disagree: %x vs %x", aSecret, bSecret)
	}
}

func TestHandshakeDistinctKeypairsProduceDistinctSecrets(t *testing.T) {
	aPriv, _, _ := GenerateEphemeral()
	_, bPub1, _ := GenerateEphemeral()
	_, bPub2, _ := GenerateEphemeral()

	s1, err := DeriveShared(aPriv, bPub1)
	if err != nil {
		t.Fatalf("derive 1: %v", err)
	}
	s2, err := DeriveShared(aPriv, bPub2)
	if err != nil {
		t.Fatalf("derive 2: %v", err)
	}
	if s1 == s2 {
		t.Fatalf("expected distinct secrets for distinct remote keys")
	}
}

func TestAEADRoundTrip(t *testing.T) {
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(i * 7)
	}
	nonce, err := NewNonce()
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext, err := Seal(key, nonce, plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if len(ciphertext) != len(plaintext)+TagSize {
		t.Fatalf("unexpected ciphertext length: got %d want %d", len(ciphertext), len(plaintext)+TagSize)
	}

	decoded, err := Open(key, nonce, ciphertext)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(decoded, plaintext) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestAEADEmptyPlaintextRoundTrip(t *testing.T) {
	var key [KeySize]byte
	nonce, _ := NewNonce()

	ciphertext, err := Seal(key, nonce, nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if len(ciphertext) != TagSize {
		t.Fatalf("expected tag-only ciphertext, got %d bytes", len(ciphertext))
	}

	decoded, err := Open(key, nonce, ciphertext)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty plaintext, got %d bytes", len(decoded))
	}
}

func TestAEADWrongKeyFailsToOpen(t *testing.T) {
	var key1, key2 [KeySize]byte
	key2[0] = 1
	nonce, _ := NewNonce()

	ciphertext, err := Seal(key1, nonce, []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(key2, nonce, ciphertext); err != ErrEncryptionFailure {
		t.Fatalf("expected ErrEncryptionFailure, got %v", err)
	}
}

func TestAEADTamperedCiphertextFailsToOpen(t *testing.T) {
	var key [KeySize]byte
	nonce, _ := NewNonce()

	ciphertext, err := Seal(key, nonce, []byte("integrity matters"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	ciphertext[0] ^= 0xFF

	if _, err := Open(key, nonce, ciphertext); err != ErrEncryptionFailure {
		t.Fatalf("expected ErrEncryptionFailure, got %v", err)
	}
}

func TestAEADWrongNonceFailsToOpen(t *testing.T) {
	var key [KeySize]byte
	nonce1, _ := NewNonce()
	nonce2, _ := NewNonce()

	ciphertext, err := Seal(key, nonce1, []byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(key, nonce2, ciphertext); err != ErrEncryptionFailure {
		t.Fatalf("expected ErrEncryptionFailure, got %v", err)
	}
}
