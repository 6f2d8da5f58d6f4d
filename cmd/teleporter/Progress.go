/*
File Name:  Progress.go

cliProgress implements transfer.ProgressWriter by printing directly to
stdout, the same direct-write style the reference implementation uses
for its progress banners (print!/io::stdout().flush()) rather than
going through a logging layer — this is user-facing presentation, not
diagnostics.
*/

package main

import (
	"fmt"

	"github.com/genonullfree/teleporter/transfer"
)

type cliProgress struct{}

func (cliProgress) FileStarted(filename string, size uint64, direction transfer.Direction) {
	verb := "Sending"
	if direction == transfer.DirectionReceive {
		verb = "Receiving"
	}
	fmt.Printf("%s %s (%d bytes)...\n", verb, filename, size)
}

func (cliProgress) ChunkTransferred(filename string, transferred uint64, skipped bool) {
	// Per-chunk progress is intentionally not printed line-by-line here to avoid flooding
	// stdout; FileCompleted reports the final tally.
}

func (cliProgress) FileCompleted(filename string, result transfer.Outcome) {
	if result.Err != nil {
		fmt.Printf(" => Error transferring %s: %v\n", filename, result.Err)
		return
	}
	if result.Identical {
		fmt.Printf(" => %s is identical, nothing sent\n", filename)
		return
	}

	speedMbps := 0.0
	if secs := result.Duration.Seconds(); secs > 0 {
		speedMbps = float64(result.Bytes*8) / secs / 1024 / 1024
	}
	fmt.Printf(" => Transferred %s (%d bytes sent, %d skipped) in %s @ %.3f Mbps\n",
		filename, result.Bytes, result.BytesSkipped, result.Duration, speedMbps)
}
