package chunkhash

import (
	"bytes"
	"testing"
)

func TestChunkSizeDoublesUntilBounded(t *testing.T) {
	tests := []struct {
		fileSize uint64
		want     uint32
	}{
		{0, 1024},
		{1024 * 2048, 1024},
		{1024*2048 + 1, 2048},
		{1024 * 2048 * 1000, 1024 * 1024},
	}
	for _, tt := range tests {
		got := ChunkSize(tt.fileSize)
		if got != tt.want {
			t.Errorf("ChunkSize(%d) = %d, want %d", tt.fileSize, got, tt.want)
		}
	}
}

func TestChunkSizeNeverExceedsBoundedChunkCount(t *testing.T) {
	sizes := []uint64{1, 1000, 1 << 20, 1 << 30, 1 << 40}
	for _, fileSize := range sizes {
		chunk := ChunkSize(fileSize)
		if fileSize/uint64(chunk) > maxChunksPerFile {
			t.Errorf("fileSize=%d chunk=%d exceeds max chunk count", fileSize, chunk)
		}
	}
}

func TestHashReaderIdenticalContentProducesIdenticalManifest(t *testing.T) {
	content := bytes.Repeat([]byte("teleporter-chunk-data"), 500)

	m1, err := HashReader(bytes.NewReader(content), uint64(len(content)))
	if err != nil {
		t.Fatalf("hash 1: %v", err)
	}
	m2, err := HashReader(bytes.NewReader(content), uint64(len(content)))
	if err != nil {
		t.Fatalf("hash 2: %v", err)
	}

	if m1.WholeHash != m2.WholeHash {
		t.Fatalf("whole hash mismatch: %x vs %x", m1.WholeHash, m2.WholeHash)
	}
	if len(m1.ChunkHash) != len(m2.ChunkHash) {
		t.Fatalf("chunk count mismatch: %d vs %d", len(m1.ChunkHash), len(m2.ChunkHash))
	}
	for i := range m1.ChunkHash {
		if m1.ChunkHash[i] != m2.ChunkHash[i] {
			t.Fatalf("chunk %d mismatch: %x vs %x", i, m1.ChunkHash[i], m2.ChunkHash[i])
		}
	}
}

func TestHashReaderDifferentContentProducesDifferentWholeHash(t *testing.T) {
	a := bytes.Repeat([]byte{0x01}, 4096)
	b := bytes.Repeat([]byte{0x02}, 4096)

	ma, err := HashReader(bytes.NewReader(a), uint64(len(a)))
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	mb, err := HashReader(bytes.NewReader(b), uint64(len(b)))
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}

	if ma.WholeHash == mb.WholeHash {
		t.Fatalf("expected different whole hashes for different content")
	}
}

func TestHashReaderShortLastChunk(t *testing.T) {
	content := bytes.Repeat([]byte{0x07}, 1500)
	m, err := HashReader(bytes.NewReader(content), uint64(len(content)))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if m.ChunkSize != 1024 {
		t.Fatalf("expected chunk size 1024 for this file size, got %d", m.ChunkSize)
	}
	if len(m.ChunkHash) != 2 {
		t.Fatalf("expected 2 chunks (1024 + 476), got %d", len(m.ChunkHash))
	}
}

func TestHashReaderEmptyFile(t *testing.T) {
	m, err := HashReader(bytes.NewReader(nil), 0)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(m.ChunkHash) != 0 {
		t.Fatalf("expected no chunks for empty file, got %d", len(m.ChunkHash))
	}
}
