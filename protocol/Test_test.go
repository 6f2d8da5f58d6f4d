package protocol

import (
	"bytes"
	"testing"
)

func TestPacketRoundTripPlain(t *testing.T) {
	data := []byte("hello world")
	frame := EncodeHeader(ActionData, nil, data)

	pkt, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if pkt.Encrypted {
		t.Fatalf("expected unencrypted packet")
	}
	if pkt.Action != ActionData {
		t.Fatalf("action mismatch: got %x", pkt.Action)
	}
	if !bytes.Equal(pkt.Data, data) {
		t.Fatalf("data mismatch: got %q", pkt.Data)
	}
}

func TestPacketRoundTripEncrypted(t *testing.T) {
	var iv [IVSize]byte
	for i := range iv {
		iv[i] = byte(i)
	}
	cipherText := []byte("ciphertext+tag-placeholder")
	frame := EncodeHeader(ActionInit, &iv, cipherText)

	pkt, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !pkt.Encrypted {
		t.Fatalf("expected encrypted packet")
	}
	if pkt.Action != ActionInit {
		t.Fatalf("action mismatch: got %x", pkt.Action)
	}
	if pkt.IV != iv {
		t.Fatalf("iv mismatch")
	}
	if !bytes.Equal(pkt.Data, cipherText) {
		t.Fatalf("data mismatch")
	}
}

func TestPacketEncodeThenDecodeIsIdentity(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 37)
	frame := EncodeHeader(ActionData, nil, data)

	pkt, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	reencoded := EncodeHeader(pkt.Action, nil, pkt.Data)
	if !bytes.Equal(reencoded, frame) {
		t.Fatalf("re-encoded frame does not match original")
	}
}

func TestTruncatedFrameFailsDecode(t *testing.T) {
	frame := EncodeHeader(ActionData, nil, []byte("truncate-me"))
	for i := 1; i <= len(frame); i++ {
		truncated := frame[:len(frame)-i]
		if _, err := DecodeFrame(truncated); err == nil {
			t.Fatalf("expected decode error for truncated frame of length %d", len(truncated))
		}
	}
}

func TestFlippedMagicByteFailsDecode(t *testing.T) {
	frame := EncodeHeader(ActionPing, nil, []byte("x"))
	for i := 0; i < 8; i++ {
		corrupt := append([]byte(nil), frame...)
		corrupt[i] ^= 0xFF
		_, err := DecodeFrame(corrupt)
		if err != ErrInvalidProtocol {
			t.Fatalf("byte %d: expected ErrInvalidProtocol, got %v", i, err)
		}
	}
}

func TestInitPayloadRoundTrip(t *testing.T) {
	in := &InitPayload{
		Version:  Version{1, 2, 3},
		Features: FeatureNewFile | FeatureDelta | FeatureOverwrite,
		Chmod:    0644,
		FileSize: 123456,
		FileName: "path/to/hello.txt",
	}
	encoded := in.Encode()

	out, err := DecodeInit(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *out != *in {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestInitPayloadEmptyFileNameRejected(t *testing.T) {
	in := &InitPayload{Version: Version{1, 0, 0}, FileSize: 1, FileName: ""}
	if _, err := DecodeInit(in.Encode()); err != ErrInvalidFileName {
		t.Fatalf("expected ErrInvalidFileName, got %v", err)
	}
}

func TestInitPayloadTruncatedFailsDecode(t *testing.T) {
	in := &InitPayload{Version: Version{1, 0, 0}, FileSize: 1, FileName: "a.txt"}
	encoded := in.Encode()
	for i := 1; i < len(encoded); i++ {
		if _, err := DecodeInit(encoded[:len(encoded)-i]); err == nil {
			t.Fatalf("expected decode error at truncation %d", i)
		}
	}
}

func TestInitAckProceedWithDeltaRoundTrip(t *testing.T) {
	in := &InitAckPayload{
		Status:   StatusProceed,
		Version:  Version{1, 0, 0},
		Features: FeatureOverwrite | FeatureDelta,
		Delta: &DeltaPayload{
			FileSize:  9000,
			WholeHash: 0xDEADBEEFCAFEBABE,
			ChunkSize: 1024,
			ChunkHash: []uint64{1, 2, 3, 4, 5},
		},
	}
	encoded := in.Encode()

	out, err := DecodeInitAck(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Status != in.Status || out.Version != in.Version || out.Features != in.Features {
		t.Fatalf("header mismatch: got %+v", out)
	}
	if out.Delta == nil {
		t.Fatalf("expected delta")
	}
	if out.Delta.FileSize != in.Delta.FileSize || out.Delta.WholeHash != in.Delta.WholeHash ||
		out.Delta.ChunkSize != in.Delta.ChunkSize || len(out.Delta.ChunkHash) != len(in.Delta.ChunkHash) {
		t.Fatalf("delta mismatch: got %+v", out.Delta)
	}
	for i := range in.Delta.ChunkHash {
		if out.Delta.ChunkHash[i] != in.Delta.ChunkHash[i] {
			t.Fatalf("chunk hash %d mismatch: got %d want %d", i, out.Delta.ChunkHash[i], in.Delta.ChunkHash[i])
		}
	}
}

func TestInitAckNonProceedCarriesNoFeaturesOrDelta(t *testing.T) {
	in := &InitAckPayload{Status: StatusNoOverwrite, Version: Version{1, 0, 0}}
	encoded := in.Encode()
	if len(encoded) != 7 {
		t.Fatalf("expected 7-byte encoding for non-Proceed status, got %d", len(encoded))
	}

	out, err := DecodeInitAck(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Status != StatusNoOverwrite || out.Features != 0 || out.Delta != nil {
		t.Fatalf("expected empty features/delta, got %+v", out)
	}
}

func TestInitAckUnknownStatusRejected(t *testing.T) {
	encoded := []byte{99, 1, 0, 0, 0, 0, 0}
	if _, err := DecodeInitAck(encoded); err != ErrInvalidStatusCode {
		t.Fatalf("expected ErrInvalidStatusCode, got %v", err)
	}
}

func TestDataPayloadRoundTrip(t *testing.T) {
	in := &DataPayload{Offset: 4096, Data: bytes.Repeat([]byte{0x42}, 512)}
	encoded := in.Encode()

	out, err := DecodeData(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Offset != in.Offset || !bytes.Equal(out.Data, in.Data) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestDataPayloadTerminalFrame(t *testing.T) {
	in := &DataPayload{Offset: 3, Data: nil}
	out, err := DecodeData(in.Encode())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Offset != 3 || len(out.Data) != 0 {
		t.Fatalf("expected terminal frame with offset=3, data_len=0, got %+v", out)
	}
}

func TestEcdhPayloadRoundTrip(t *testing.T) {
	in := &EcdhPayload{}
	for i := range in.PublicKey {
		in.PublicKey[i] = byte(i)
	}

	out, err := DecodeEcdh(in.Encode())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.PublicKey != in.PublicKey {
		t.Fatalf("round-trip mismatch")
	}
}

func TestEcdhPayloadWrongLengthRejected(t *testing.T) {
	if _, err := DecodeEcdh(make([]byte, 31)); err != ErrInvalidPubKey {
		t.Fatalf("expected ErrInvalidPubKey, got %v", err)
	}
	if _, err := DecodeEcdh(make([]byte, 33)); err != ErrInvalidPubKey {
		t.Fatalf("expected ErrInvalidPubKey, got %v", err)
	}
}

func TestVersionCompatible(t *testing.T) {
	a := Version{1, 2, 0}
	b := Version{1, 2, 9}
	c := Version{1, 3, 0}

	if !a.Compatible(b) {
		t.Fatalf("expected %+v compatible with %+v", a, b)
	}
	if a.Compatible(c) {
		t.Fatalf("expected %+v incompatible with %+v", a, c)
	}
}
