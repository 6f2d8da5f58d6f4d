/*
File Name:  Message Encoding.go

Payload encoding for the four message kinds carried inside a Packet's
data field: INIT, INIT_ACK, DATA, and ECDH. Every payload is encoded
independently of the outer frame so that C4 framing can encrypt/decrypt
the whole blob without knowing its internal structure.
*/

package protocol

import (
	"encoding/binary"
)

// Feature bits negotiated between Sender and Receiver via INIT/INIT_ACK.
const (
	FeatureNewFile   uint32 = 0x01
	FeatureDelta     uint32 = 0x02
	FeatureOverwrite uint32 = 0x04
	FeatureBackup    uint32 = 0x08
	FeatureRename    uint32 = 0x10
)

// Status codes carried in an INIT_ACK.
type Status uint8

const (
	StatusProceed            Status = 0
	StatusNoOverwrite         Status = 1
	StatusNoSpace             Status = 2
	StatusNoPermission        Status = 3
	StatusWrongVersion        Status = 4
	StatusRequiresEncryption  Status = 5
	StatusEncryptionError     Status = 6
	StatusBadFileName         Status = 7
	StatusUnknownAction       Status = 8
	StatusPong                Status = 9
)

func (s Status) valid() bool {
	return s <= StatusPong
}

// Version is the 3-tuple (major, minor, patch) compatibility identifier.
type Version struct {
	Major, Minor, Patch uint16
}

// Compatible reports whether two endpoints may interoperate: major and minor must match.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

func encodeVersion(out []byte, v Version) {
	binary.LittleEndian.PutUint16(out[0:2], v.Major)
	binary.LittleEndian.PutUint16(out[2:4], v.Minor)
	binary.LittleEndian.PutUint16(out[4:6], v.Patch)
}

func decodeVersion(in []byte) Version {
	return Version{
		Major: binary.LittleEndian.Uint16(in[0:2]),
		Minor: binary.LittleEndian.Uint16(in[2:4]),
		Patch: binary.LittleEndian.Uint16(in[4:6]),
	}
}

// EcdhPayload carries a single X25519 ephemeral public key.
type EcdhPayload struct {
	PublicKey [32]byte
}

func (p *EcdhPayload) Encode() []byte {
	out := make([]byte, 32)
	copy(out, p.PublicKey[:])
	return out
}

func DecodeEcdh(data []byte) (*EcdhPayload, error) {
	if len(data) != 32 {
		return nil, ErrInvalidPubKey
	}
	p := &EcdhPayload{}
	copy(p.PublicKey[:], data)
	return p, nil
}

// InitPayload announces an incoming file and the features the sender would like negotiated.
type InitPayload struct {
	Version  Version
	Features uint32
	Chmod    uint32
	FileSize uint64
	FileName string
}

func (p *InitPayload) Encode() []byte {
	nameBytes := []byte(p.FileName)
	out := make([]byte, 6+4+4+8+2+len(nameBytes))

	encodeVersion(out[0:6], p.Version)
	binary.LittleEndian.PutUint32(out[6:10], p.Features)
	binary.LittleEndian.PutUint32(out[10:14], p.Chmod)
	binary.LittleEndian.PutUint64(out[14:22], p.FileSize)
	binary.LittleEndian.PutUint16(out[22:24], uint16(len(nameBytes)))
	copy(out[24:], nameBytes)

	return out
}

func DecodeInit(data []byte) (*InitPayload, error) {
	const fixedLen = 6 + 4 + 4 + 8 + 2
	if len(data) < fixedLen {
		return nil, ErrInvalidLength
	}

	p := &InitPayload{}
	p.Version = decodeVersion(data[0:6])
	p.Features = binary.LittleEndian.Uint32(data[6:10])
	p.Chmod = binary.LittleEndian.Uint32(data[10:14])
	p.FileSize = binary.LittleEndian.Uint64(data[14:22])
	nameLen := binary.LittleEndian.Uint16(data[22:24])

	if len(data) != fixedLen+int(nameLen) {
		return nil, ErrInvalidFileName
	}
	if nameLen == 0 {
		return nil, ErrInvalidFileName
	}
	p.FileName = string(data[fixedLen:])

	return p, nil
}

// DeltaPayload is the chunk-hash manifest a Receiver attaches to INIT_ACK when overwriting
// an existing file with the Delta feature negotiated.
type DeltaPayload struct {
	FileSize   uint64
	WholeHash  uint64
	ChunkSize  uint32
	ChunkHash  []uint64
}

func (d *DeltaPayload) encode() []byte {
	out := make([]byte, 8+8+4+2+8*len(d.ChunkHash))
	binary.LittleEndian.PutUint64(out[0:8], d.FileSize)
	binary.LittleEndian.PutUint64(out[8:16], d.WholeHash)
	binary.LittleEndian.PutUint32(out[16:20], d.ChunkSize)
	binary.LittleEndian.PutUint16(out[20:22], uint16(len(d.ChunkHash)))
	ofs := 22
	for _, h := range d.ChunkHash {
		binary.LittleEndian.PutUint64(out[ofs:ofs+8], h)
		ofs += 8
	}
	return out
}

func decodeDelta(data []byte) (*DeltaPayload, int, error) {
	const fixedLen = 8 + 8 + 4 + 2
	if len(data) < fixedLen {
		return nil, 0, ErrInvalidDelta
	}

	d := &DeltaPayload{}
	d.FileSize = binary.LittleEndian.Uint64(data[0:8])
	d.WholeHash = binary.LittleEndian.Uint64(data[8:16])
	d.ChunkSize = binary.LittleEndian.Uint32(data[16:20])
	count := binary.LittleEndian.Uint16(data[20:22])

	need := fixedLen + int(count)*8
	if len(data) < need {
		return nil, 0, ErrInvalidDelta
	}

	d.ChunkHash = make([]uint64, count)
	ofs := fixedLen
	for i := range d.ChunkHash {
		d.ChunkHash[i] = binary.LittleEndian.Uint64(data[ofs : ofs+8])
		ofs += 8
	}

	return d, need, nil
}

// InitAckPayload is the Receiver's response to INIT: a status, optionally the negotiated
// features and a delta manifest.
type InitAckPayload struct {
	Status   Status
	Version  Version
	Features uint32       // Only meaningful if Status == StatusProceed.
	Delta    *DeltaPayload // Only present if Features has FeatureDelta set.
}

func (p *InitAckPayload) Encode() []byte {
	head := make([]byte, 1+6)
	head[0] = uint8(p.Status)
	encodeVersion(head[1:7], p.Version)

	if p.Status != StatusProceed {
		return head
	}

	featBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(featBuf, p.Features)
	out := append(head, featBuf...)

	if p.Features&FeatureDelta != 0 && p.Delta != nil {
		out = append(out, p.Delta.encode()...)
	}

	return out
}

func DecodeInitAck(data []byte) (*InitAckPayload, error) {
	const fixedLen = 1 + 6
	if len(data) < fixedLen {
		return nil, ErrInvalidLength
	}

	p := &InitAckPayload{}
	p.Status = Status(data[0])
	if !p.Status.valid() {
		return nil, ErrInvalidStatusCode
	}
	p.Version = decodeVersion(data[1:7])

	if p.Status != StatusProceed {
		if len(data) != fixedLen {
			return nil, ErrInvalidLength
		}
		return p, nil
	}

	if len(data) < fixedLen+4 {
		return nil, ErrInvalidLength
	}
	p.Features = binary.LittleEndian.Uint32(data[fixedLen : fixedLen+4])
	rest := data[fixedLen+4:]

	if p.Features&FeatureDelta != 0 {
		delta, used, err := decodeDelta(rest)
		if err != nil {
			return nil, err
		}
		if used != len(rest) {
			return nil, ErrInvalidDelta
		}
		p.Delta = delta
	} else if len(rest) != 0 {
		return nil, ErrInvalidLength
	}

	return p, nil
}

// DataPayload carries one chunk of raw file bytes at a given offset. A zero-length Data at
// Offset == file size is the canonical end-of-transfer signal.
type DataPayload struct {
	Offset   uint64
	Data     []byte
}

func (d *DataPayload) Encode() []byte {
	out := make([]byte, 8+4+len(d.Data))
	binary.LittleEndian.PutUint64(out[0:8], d.Offset)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(d.Data)))
	copy(out[12:], d.Data)
	return out
}

func DecodeData(data []byte) (*DataPayload, error) {
	const fixedLen = 8 + 4
	if len(data) < fixedLen {
		return nil, ErrInvalidLength
	}

	d := &DataPayload{}
	d.Offset = binary.LittleEndian.Uint64(data[0:8])
	dataLen := binary.LittleEndian.Uint32(data[8:12])

	if len(data) != fixedLen+int(dataLen) {
		return nil, ErrInvalidLength
	}

	d.Data = make([]byte, dataLen)
	copy(d.Data, data[fixedLen:])

	return d, nil
}
