/*
File Name:  Sender.go

C6 Sender: drives one file transfer end to end — optional handshake,
INIT/INIT_ACK negotiation, delta comparison against the remote's
chunk-hash manifest, and a chunked DATA stream with skip-if-matching
behavior. One Sender instance can push an entire batch of files,
opening a fresh TCP connection per file per the session-state model.
*/

package transfer

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/genonullfree/teleporter/chunkhash"
	ourCrypto "github.com/genonullfree/teleporter/crypto"
	"github.com/genonullfree/teleporter/ledger"
	"github.com/genonullfree/teleporter/protocol"
	"github.com/google/uuid"
)

// streamChunkSize is the DATA frame size used when no delta manifest is negotiated.
const streamChunkSize = 4096

// Sender drives outbound file transfers.
type Sender struct {
	Filters  Filters
	Progress ProgressWriter
	Ledger   ledger.Store // optional; a nil Ledger simply skips receipt logging
}

// NewSender returns a Sender with defaulted hooks.
func NewSender(filters Filters, progress ProgressWriter) *Sender {
	filters.Init()
	if progress == nil {
		progress = noopProgress{}
	}
	return &Sender{Filters: filters, Progress: progress}
}

// SendBatch transfers every file in opts.Files in order, each over its own connection.
// Per-file policy refusals (NoOverwrite/NoPermission/NoSpace) are logged and skipped; a
// version/encryption-policy rejection aborts the remaining batch.
func (s *Sender) SendBatch(opts SendOptions) error {
	addr := net.JoinHostPort(opts.Dest, strconv.Itoa(opts.Port))
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDest, err)
	}

	for _, file := range opts.Files {
		corrID := uuid.New()
		start := time.Now()
		outcome, err := s.sendFile(addr, opts, file)
		outcome.Duration = time.Since(start)
		s.Progress.FileCompleted(file.RemoteName, outcome)
		s.recordLedger(corrID, file, addr, start, outcome)

		if err == nil {
			continue
		}

		switch err {
		case ErrVersionMismatch, ErrRequiresEncryption, ErrEncryptionPolicy:
			s.Filters.LogError("SendBatch", "%s: aborting batch: %v", corrID, err)
			return err
		default:
			s.Filters.LogError("SendBatch", "%s: skipping %s: %v", corrID, file.LocalPath, err)
		}
	}

	return nil
}

type hashResult struct {
	manifest *chunkhash.Manifest
	err      error
}

func (s *Sender) sendFile(addr string, opts SendOptions, file FileSpec) (Outcome, error) {
	src, err := os.Open(file.LocalPath)
	if err != nil {
		return Outcome{Err: err}, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Outcome{Err: err}, err
	}
	fileSize := uint64(info.Size())

	s.Progress.FileStarted(file.RemoteName, fileSize, DirectionSend)

	var hashCh chan hashResult
	if opts.Overwrite && !opts.NoDelta {
		hashCh = make(chan hashResult, 1)
		go func() {
			manifest, err := chunkhash.HashReader(src, fileSize)
			hashCh <- hashResult{manifest, err}
		}()
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return Outcome{Err: err}, err
	}
	defer conn.Close()

	var session *Session
	if opts.Encrypt {
		session, err = clientHandshake(conn)
		if err != nil {
			return Outcome{Err: err}, err
		}
	}

	features := protocol.FeatureNewFile
	if opts.Overwrite {
		features |= protocol.FeatureOverwrite
	}
	if opts.Overwrite && !opts.NoDelta {
		features |= protocol.FeatureDelta
	}
	if opts.Backup {
		features |= protocol.FeatureBackup
	}
	if opts.Rename {
		features |= protocol.FeatureRename
	}

	// The rename target always wins; KeepPath only decides whether its directory structure
	// survives or gets collapsed to a basename.
	remoteName := file.RemoteName
	if !opts.KeepPath {
		remoteName = filepath.Base(remoteName)
	}

	init := &protocol.InitPayload{
		Version:  ProtocolVersion,
		Features: features,
		Chmod:    uint32(info.Mode().Perm()),
		FileSize: fileSize,
		FileName: remoteName,
	}
	if err := SendPacket(conn, protocol.ActionInit, session, init.Encode()); err != nil {
		return Outcome{Err: err}, err
	}

	action, data, err := RecvPacket(conn, session)
	if err != nil {
		return Outcome{Err: err}, err
	}
	if action != protocol.ActionInitAck {
		return Outcome{Err: ErrUnexpectedAction}, ErrUnexpectedAction
	}
	ack, err := protocol.DecodeInitAck(data)
	if err != nil {
		return Outcome{Err: err}, err
	}

	if err := statusToError(ack.Status); err != nil {
		return Outcome{Err: err}, err
	}

	var localManifest *chunkhash.Manifest
	if hashCh != nil {
		result := <-hashCh
		if result.err != nil {
			return Outcome{Err: result.err}, result.err
		}
		localManifest = result.manifest
	}

	if ack.Delta != nil && localManifest != nil && ack.Delta.WholeHash == localManifest.WholeHash {
		if err := sendTerminal(conn, session, fileSize); err != nil {
			return Outcome{Err: err}, err
		}
		return Outcome{Bytes: 0, BytesSkipped: fileSize, Identical: true}, nil
	}

	outcome, err := s.streamData(conn, session, src, fileSize, localManifest, ack.Delta, remoteName)
	return outcome, err
}

func (s *Sender) streamData(conn net.Conn, session *Session, src *os.File, fileSize uint64, local *chunkhash.Manifest, remote *protocol.DeltaPayload, name string) (Outcome, error) {
	chunkSize := uint32(streamChunkSize)
	if remote != nil {
		chunkSize = remote.ChunkSize
	}

	var sent, skipped uint64
	var offset uint64
	chunkIdx := 0

	buf := make([]byte, chunkSize)
	for offset < fileSize {
		want := uint64(chunkSize)
		if offset+want > fileSize {
			want = fileSize - offset
		}

		matches := remote != nil && local != nil &&
			chunkIdx < len(remote.ChunkHash) && chunkIdx < len(local.ChunkHash) &&
			remote.ChunkHash[chunkIdx] == local.ChunkHash[chunkIdx]

		if matches {
			if _, err := src.Seek(int64(offset+want), 0); err != nil {
				return Outcome{Bytes: sent, BytesSkipped: skipped, Err: err}, err
			}
			skipped += want
			s.Progress.ChunkTransferred(name, sent+skipped, true)
		} else {
			if _, err := src.Seek(int64(offset), 0); err != nil {
				return Outcome{Bytes: sent, BytesSkipped: skipped, Err: err}, err
			}
			n, err := src.Read(buf[:want])
			if err != nil {
				return Outcome{Bytes: sent, BytesSkipped: skipped, Err: err}, err
			}
			payload := &protocol.DataPayload{Offset: offset, Data: buf[:n]}
			if err := SendPacket(conn, protocol.ActionData, session, payload.Encode()); err != nil {
				return Outcome{Bytes: sent, BytesSkipped: skipped, Err: err}, err
			}
			sent += uint64(n)
			s.Progress.ChunkTransferred(name, sent+skipped, false)
		}

		offset += want
		chunkIdx++
	}

	if err := sendTerminal(conn, session, fileSize); err != nil {
		return Outcome{Bytes: sent, BytesSkipped: skipped, Err: err}, err
	}

	return Outcome{Bytes: sent, BytesSkipped: skipped}, nil
}

func sendTerminal(conn net.Conn, session *Session, fileSize uint64) error {
	terminal := &protocol.DataPayload{Offset: fileSize, Data: nil}
	return SendPacket(conn, protocol.ActionData, session, terminal.Encode())
}

func statusToError(status protocol.Status) error {
	switch status {
	case protocol.StatusProceed:
		return nil
	case protocol.StatusNoOverwrite, protocol.StatusNoPermission, protocol.StatusNoSpace:
		return ErrRefused
	case protocol.StatusWrongVersion:
		return ErrVersionMismatch
	case protocol.StatusRequiresEncryption:
		return ErrRequiresEncryption
	case protocol.StatusEncryptionError:
		return ErrEncryptionPolicy
	case protocol.StatusBadFileName:
		return ErrRefused
	default:
		return ErrUnexpectedAction
	}
}

// clientHandshake performs the sender's half of the ECDH exchange and returns the resulting
// session. The caller has already dialed conn.
func clientHandshake(conn net.Conn) (*Session, error) {
	priv, pub, err := ourCrypto.GenerateEphemeral()
	if err != nil {
		return nil, err
	}

	ecdh := &protocol.EcdhPayload{PublicKey: pub}
	if err := SendPacket(conn, protocol.ActionEcdh, nil, ecdh.Encode()); err != nil {
		return nil, err
	}

	action, data, err := RecvPacket(conn, nil)
	if err != nil {
		return nil, err
	}
	if action != protocol.ActionEcdhAck {
		return nil, ErrUnexpectedAction
	}
	remote, err := protocol.DecodeEcdh(data)
	if err != nil {
		return nil, err
	}

	secret, err := ourCrypto.DeriveShared(priv, remote.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Session{Key: secret}, nil
}

// recordLedger writes a completed-transfer receipt, if a Ledger is configured. A write
// failure here is logged and otherwise ignored; it never changes the batch's outcome. The
// receipt's ID is the same correlation ID logged throughout this file's send, so a log line can
// be traced back to its ledger entry.
func (s *Sender) recordLedger(corrID uuid.UUID, file FileSpec, addr string, start time.Time, outcome Outcome) {
	if s.Ledger == nil {
		return
	}
	rec := ledger.Record{
		ID:        corrID,
		Filename:  file.RemoteName,
		Size:      outcome.Bytes + outcome.BytesSkipped,
		Direction: ledger.DirectionSent,
		PeerAddr:  addr,
		Identical: outcome.Identical,
		StartedAt: start,
		Duration:  outcome.Duration,
	}
	if err := s.Ledger.Put(rec); err != nil {
		s.Filters.LogError("recordLedger", "%s: writing receipt for %s: %v", corrID, file.RemoteName, err)
	}
}
