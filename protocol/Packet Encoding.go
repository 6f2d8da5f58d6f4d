/*
File Name:  Packet Encoding.go
Copyright:  2021 Peernet Foundation s.r.o.
Author:     Peter Kleissner

Basic packet structure of every Teleporter packet (the outer frame):
Offset  Size   Info
0       8      Magic ("TELEPORT" as u64 LE)
8       4      Length of the trailing data field
12      1      Action code (low 7 bits) OR'd with the Encrypted bit (0x80)
13      12     IV, present only if Encrypted is set
?       ?      Data. If Encrypted, this is AES-256-GCM ciphertext (tag included) of the payload.
*/

package protocol

import (
	"encoding/binary"
	"errors"
)

// Magic identifies every Teleporter packet: "TELEPORT" read as a little-endian u64.
const Magic uint64 = 0x54524f50454c4554

// HeaderSize is the number of bytes that precede the IV/data: magic (8) + data_len (4) + action (1).
const HeaderSize = 8 + 4 + 1

// IVSize is the length of the AES-GCM nonce carried in an encrypted packet.
const IVSize = 12

// Action codes. The low 7 bits identify the message kind; Encrypted is an OR-overlay, never standalone.
const (
	ActionInit     uint8 = 0x01
	ActionInitAck  uint8 = 0x02
	ActionEcdh     uint8 = 0x04
	ActionEcdhAck  uint8 = 0x08
	ActionPing     uint8 = 0x10
	ActionPong     uint8 = 0x20
	ActionData     uint8 = 0x40
	ActionEncrypted uint8 = 0x80

	actionMask = 0x7F
)

// Decode errors. Every malformed input produces one of these rather than a silently truncated value.
var (
	ErrInvalidProtocol    = errors.New("protocol: invalid magic")
	ErrInvalidLength      = errors.New("protocol: invalid length")
	ErrInvalidHeaderRead  = errors.New("protocol: invalid header")
	ErrInvalidPubKey      = errors.New("protocol: invalid public key")
	ErrInvalidIV          = errors.New("protocol: invalid iv")
	ErrInvalidStatusCode  = errors.New("protocol: invalid status code")
	ErrInvalidFileName    = errors.New("protocol: invalid file name")
	ErrInvalidDelta       = errors.New("protocol: invalid delta")
)

// Packet is the decoded outer frame. Data is the data field as carried on the wire: when
// Encrypted it is still ciphertext+tag, which the transfer package's framing decrypts.
type Packet struct {
	Action    uint8 // Low 7 bits only; the Encrypted bit is stripped and reported via Encrypted.
	Encrypted bool
	IV        [IVSize]byte // Only meaningful if Encrypted.
	Data      []byte
}

// EncodeHeader serializes the outer frame around data. If iv is non-nil, the Encrypted bit is
// set and iv is embedded; data is expected to already be ciphertext in that case.
func EncodeHeader(action uint8, iv *[IVSize]byte, data []byte) []byte {
	headerLen := HeaderSize
	if iv != nil {
		headerLen += IVSize
	}

	out := make([]byte, headerLen+len(data))
	binary.LittleEndian.PutUint64(out[0:8], Magic)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(data)))

	a := action & actionMask
	if iv != nil {
		a |= ActionEncrypted
	}
	out[12] = a

	ofs := HeaderSize
	if iv != nil {
		copy(out[ofs:ofs+IVSize], iv[:])
		ofs += IVSize
	}
	copy(out[ofs:], data)

	return out
}

// DecodeHeaderPrefix parses only the fixed-size portion of the frame (magic, data_len, action),
// returning the total number of bytes the full frame will occupy (including any IV and the data).
// Callers use this to know how many more bytes to read off the stream.
func DecodeHeaderPrefix(prefix []byte) (dataLen uint32, action uint8, encrypted bool, totalLen int, err error) {
	if len(prefix) < HeaderSize {
		return 0, 0, false, 0, ErrInvalidHeaderRead
	}

	magic := binary.LittleEndian.Uint64(prefix[0:8])
	if magic != Magic {
		return 0, 0, false, 0, ErrInvalidProtocol
	}

	dataLen = binary.LittleEndian.Uint32(prefix[8:12])
	rawAction := prefix[12]
	encrypted = rawAction&ActionEncrypted != 0
	action = rawAction &^ ActionEncrypted

	total := HeaderSize + int(dataLen)
	if encrypted {
		total += IVSize
	}

	return dataLen, action, encrypted, total, nil
}

// DecodeFrame parses a complete frame (exactly DecodeHeaderPrefix's totalLen bytes) into a Packet.
// Data remains as received on the wire: if Encrypted, it is still ciphertext+tag and must be
// decrypted by the caller before further interpretation.
func DecodeFrame(frame []byte) (pkt *Packet, err error) {
	dataLen, action, encrypted, total, err := DecodeHeaderPrefix(frame)
	if err != nil {
		return nil, err
	}
	if len(frame) != total {
		return nil, ErrInvalidLength
	}

	pkt = &Packet{Action: action, Encrypted: encrypted}

	ofs := HeaderSize
	if encrypted {
		if len(frame) < ofs+IVSize {
			return nil, ErrInvalidIV
		}
		copy(pkt.IV[:], frame[ofs:ofs+IVSize])
		ofs += IVSize
	}

	pkt.Data = make([]byte, dataLen)
	copy(pkt.Data, frame[ofs:])

	return pkt, nil
}
