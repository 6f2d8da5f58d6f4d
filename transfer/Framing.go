/*
File Name:  Framing.go

C4 Framing: send and receive exactly one framed packet on a connected
byte stream, applying AEAD when a session key is present. Framing is
single-writer/single-reader per connection: callers must not invoke
SendPacket or RecvPacket concurrently from multiple goroutines against
the same net.Conn.
*/

package transfer

import (
	"io"
	"net"

	"github.com/genonullfree/teleporter/crypto"
	"github.com/genonullfree/teleporter/protocol"
)

// Session holds the per-connection AES-256-GCM key derived from the X25519 handshake. A nil
// *Session means the connection is unencrypted.
type Session struct {
	Key [crypto.KeySize]byte
}

// SendPacket encodes action/plaintext as one outer frame and writes it in a single call.
// If session is non-nil, plaintext is sealed under a fresh random nonce and the ENCRYPTED
// bit is set.
func SendPacket(conn net.Conn, action uint8, session *Session, plaintext []byte) error {
	var ivPtr *[protocol.IVSize]byte
	data := plaintext

	if session != nil {
		nonce, err := crypto.NewNonce()
		if err != nil {
			return err
		}
		ciphertext, err := crypto.Seal(session.Key, nonce, plaintext)
		if err != nil {
			return err
		}
		data = ciphertext
		ivPtr = &nonce
	}

	frame := protocol.EncodeHeader(action, ivPtr, data)
	_, err := conn.Write(frame)
	return err
}

// RecvPacket reads exactly one frame off conn: the fixed header first, then the remainder
// once data_len (and whether ENCRYPTED) is known. If session is non-nil and the frame is
// encrypted, data is decrypted in place before being returned.
func RecvPacket(conn net.Conn, session *Session) (action uint8, data []byte, err error) {
	prefix := make([]byte, protocol.HeaderSize)
	if _, err = io.ReadFull(conn, prefix); err != nil {
		return 0, nil, err
	}

	_, _, encrypted, total, err := protocol.DecodeHeaderPrefix(prefix)
	if err != nil {
		return 0, nil, err
	}

	rest := make([]byte, total-protocol.HeaderSize)
	if _, err = io.ReadFull(conn, rest); err != nil {
		return 0, nil, err
	}

	frame := append(prefix, rest...)
	pkt, err := protocol.DecodeFrame(frame)
	if err != nil {
		return 0, nil, err
	}

	if !encrypted {
		return pkt.Action, pkt.Data, nil
	}

	if session == nil {
		return 0, nil, crypto.ErrEncryptionFailure
	}

	plaintext, err := crypto.Open(session.Key, pkt.IV, pkt.Data)
	if err != nil {
		return 0, nil, err
	}

	return pkt.Action, plaintext, nil
}
