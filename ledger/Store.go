/*
File Name:  Store.go

A small append-only receipt log of completed (or explicitly skipped)
file transfers. Adapted from the reference core's key/value store
abstraction (store.Store / PogrebStore / MemoryStore): the same
Put/Get interface shape, repurposed here to record transfer receipts
instead of DHT entries. Ledger writes happen after a transfer's
terminal DATA frame and never gate the wire protocol — a write
failure here is logged and ignored by the caller, never surfaced to
the peer.
*/

package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

// Direction distinguishes whether this process was the Sender or Receiver for a Record.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Record is one completed-transfer receipt.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	Size       uint64    `json:"size"`
	Direction  Direction `json:"direction"`
	PeerAddr   string    `json:"peer_addr"`
	Identical  bool      `json:"identical"`
	StartedAt  time.Time `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	ContentSum [32]byte  `json:"content_sum"` // blake3 digest of the record's canonical encoding, for spot-checking ledger integrity
}

// Store is the interface the ledger is written through. Backed by Pogreb in production and
// by an in-memory map in tests.
type Store interface {
	// Put stores one record, keyed by its ID.
	Put(record Record) error

	// Get returns the record for id, if present.
	Get(id uuid.UUID) (record Record, found bool)

	// List returns every record currently stored, in no particular order.
	List() ([]Record, error)

	// Close releases any underlying resources.
	Close() error
}

// encodeRecord serializes a record to JSON and stamps ContentSum with its blake3 digest, the
// same hash function the reference core uses for packet/content digests.
func encodeRecord(r Record) ([]byte, error) {
	r.ContentSum = [32]byte{}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	r.ContentSum = sum
	return json.Marshal(r)
}

func decodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}
