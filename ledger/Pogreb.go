/*
File Name:  Pogreb.go

PogrebStore is the durable ledger backend, adapted from the reference
core's store.PogrebStore. Keys are the record's raw UUID bytes; values
are the JSON-encoded, content-hashed record.
*/

package ledger

import (
	"io"
	"log"
	"sync"

	"github.com/akrylysov/pogreb"
	"github.com/google/uuid"
)

// PogrebStore is an embedded key/value ledger backed by akrylysov/pogreb.
type PogrebStore struct {
	mutex sync.Mutex
	db    *pogreb.DB
}

// NewPogrebStore opens (creating if absent) the ledger database at filename.
func NewPogrebStore(filename string) (*PogrebStore, error) {
	pogreb.SetLogger(log.New(io.Discard, "", 0))

	db, err := pogreb.Open(filename, nil)
	if err != nil {
		return nil, err
	}

	return &PogrebStore{db: db}, nil
}

func (s *PogrebStore) Put(record Record) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Put(record.ID[:], data)
}

func (s *PogrebStore) Get(id uuid.UUID) (Record, bool) {
	s.mutex.Lock()
	value, err := s.db.Get(id[:])
	s.mutex.Unlock()

	if err != nil || value == nil {
		return Record{}, false
	}

	record, err := decodeRecord(value)
	if err != nil {
		return Record{}, false
	}
	return record, true
}

func (s *PogrebStore) List() ([]Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var records []Record
	it := s.db.Items()
	for {
		_, value, err := it.Next()
		if err == pogreb.ErrIterationDone {
			break
		}
		if err != nil {
			return nil, err
		}
		record, err := decodeRecord(value)
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *PogrebStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Close()
}
