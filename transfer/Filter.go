/*
File Name:  Filter.go

Filters lets a caller intercept logging and progress events without
the core hard-coding log.Printf or os.Stdout. Unset hooks default to
harmless implementations, mirroring how the reference core installs
blank defaults for any filter field left nil.
*/

package transfer

import (
	"log"
	"time"
)

// Filters contains the hooks a Sender or Receiver calls for diagnostics. Use nil fields for
// unused hooks; they are defaulted by Init.
type Filters struct {
	// LogError is called for any error encountered while servicing a connection or file.
	LogError func(function, format string, v ...interface{})
}

// Init defaults unset hooks to a log.Printf-based implementation.
func (f *Filters) Init() {
	if f.LogError == nil {
		f.LogError = func(function, format string, v ...interface{}) {
			log.Printf("["+function+"] "+format, v...)
		}
	}
}

// Direction says which way a file is moving, so a ProgressWriter shared between a Sender and a
// Receiver (as the CLI does) can report each correctly instead of assuming one role.
type Direction int

const (
	DirectionSend Direction = iota
	DirectionReceive
)

// ProgressWriter receives transfer progress updates. The CLI's progress-bar presentation
// layer implements this; the core only ever calls it, never formats output itself.
type ProgressWriter interface {
	// FileStarted is called once per file, before any DATA frame is sent or received.
	FileStarted(filename string, size uint64, direction Direction)

	// ChunkTransferred is called by the Sender after each chunk is sent or skipped, reporting
	// the cumulative bytes accounted for (transferred or skipped) for the current file. The
	// Receiver does not call it.
	ChunkTransferred(filename string, transferred uint64, skipped bool)

	// FileCompleted is called once per file with the final outcome.
	FileCompleted(filename string, result Outcome)
}

// Outcome summarizes how a single file transfer ended.
type Outcome struct {
	Bytes        uint64
	BytesSkipped uint64
	Identical    bool // true if the whole-file hash matched and nothing was sent
	Duration     time.Duration
	Err          error
}

// noopProgress is used when no ProgressWriter is supplied.
type noopProgress struct{}

func (noopProgress) FileStarted(string, uint64, Direction) {}
func (noopProgress) ChunkTransferred(string, uint64, bool) {}
func (noopProgress) FileCompleted(string, Outcome)         {}
