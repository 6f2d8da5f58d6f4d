/*
File Name:  Hasher.go

C5 Hasher: chunk-size selection and per-chunk + whole-file
non-cryptographic hashing, used by both the Sender (over the source
file) and the Receiver (over a pre-existing destination file) to
compute a delta manifest. Uses xxhash, a fast 64-bit non-cryptographic
hash, with a fixed seed so both sides agree on chunk boundaries and
digests without exchanging any hash-function parameters.
*/

package chunkhash

import (
	"io"

	"github.com/cespare/xxhash/v2"
)

// Seed is fixed so that sender and receiver, hashing the same bytes independently, always
// agree — the protocol exchanges only the resulting digests, never the seed itself.
const Seed uint64 = 0x54524f50454c4554

// startChunkSize is the smallest chunk size ever chosen; it doubles from here.
const startChunkSize = 1024

// maxChunksPerFile bounds chunk count to keep the INIT_ACK delta vector small regardless of
// file size: chunk size doubles until filesize/chunk is at or below this threshold.
const maxChunksPerFile = 2048

// ChunkSize picks the chunk size for a file of the given size: starting at 1024 bytes, it
// doubles until filesize/chunk <= 2048, capped at the maximum value a u32 can hold.
func ChunkSize(fileSize uint64) uint32 {
	chunk := uint64(startChunkSize)
	for fileSize/chunk > maxChunksPerFile {
		if chunk > uint64(^uint32(0))/2 {
			return ^uint32(0)
		}
		chunk *= 2
	}
	if chunk > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(chunk)
}

// Manifest is the result of hashing a file: one digest per chunk plus a rolling whole-file
// digest fed by every chunk in order.
type Manifest struct {
	FileSize  uint64
	ChunkSize uint32
	ChunkHash []uint64
	WholeHash uint64
}

// HashReader computes a Manifest by reading r sequentially in ChunkSize-sized pieces, up to
// fileSize bytes total. The final chunk may be short; it is hashed over its actual length.
func HashReader(r io.Reader, fileSize uint64) (*Manifest, error) {
	chunkSize := ChunkSize(fileSize)
	m := &Manifest{FileSize: fileSize, ChunkSize: chunkSize}

	whole := xxhash.NewWithSeed(Seed)
	buf := make([]byte, chunkSize)

	var remaining = fileSize
	for remaining > 0 {
		toRead := uint64(chunkSize)
		if toRead > remaining {
			toRead = remaining
		}

		n, err := io.ReadFull(r, buf[:toRead])
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		chunk := buf[:n]

		chunkDigest := xxhash.Sum64WithSeed(chunk, Seed)
		m.ChunkHash = append(m.ChunkHash, chunkDigest)

		whole.Write(chunk)

		remaining -= uint64(n)
		if uint64(n) < toRead {
			break
		}
	}

	m.WholeHash = whole.Sum64()
	return m, nil
}
