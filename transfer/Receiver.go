/*
File Name:  Receiver.go

C7 Receiver: services one accepted connection end to end — optional
handshake, INIT validation, destination preparation (sanitization,
rename, overwrite/backup policy, permissions), delta computation
against any pre-existing destination content, and the DATA receive
loop. Grounded in the reference implementation's connection handler:
same sanitization (strip leading '/', remove "../" substrings), same
rename-suffix loop, same backup-before-overwrite behavior.
*/

package transfer

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/genonullfree/teleporter/chunkhash"
	ourCrypto "github.com/genonullfree/teleporter/crypto"
	"github.com/genonullfree/teleporter/ledger"
	"github.com/genonullfree/teleporter/protocol"
	"github.com/google/uuid"
)

// Receiver services accepted connections according to Options.
type Receiver struct {
	Options  ListenOptions
	Filters  Filters
	Progress ProgressWriter
	List     *ReceivingList
	Ledger   ledger.Store // optional; a nil Ledger simply skips receipt logging
}

// NewReceiver returns a Receiver with defaulted hooks and a fresh receiving list.
func NewReceiver(opts ListenOptions, filters Filters, progress ProgressWriter) *Receiver {
	filters.Init()
	if progress == nil {
		progress = noopProgress{}
	}
	return &Receiver{Options: opts, Filters: filters, Progress: progress, List: NewReceivingList()}
}

// HandleConnection services exactly one connection from start to close. It never returns an
// error to the caller: every failure is logged via Filters.LogError and the connection is
// closed. This matches the reference server's per-connection worker, where a failed transfer
// aborts only that connection, never the listener.
func (r *Receiver) HandleConnection(conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr().String()
	start := time.Now()
	corrID := uuid.New()

	var session *Session

	action, data, err := RecvPacket(conn, nil)
	if err != nil {
		r.Filters.LogError("HandleConnection", "%s %s: read first packet: %v", corrID, peer, err)
		return
	}

	if action == protocol.ActionEcdh {
		session, err = r.serverHandshake(conn, data)
		if err != nil {
			r.Filters.LogError("HandleConnection", "%s %s: handshake: %v", corrID, peer, err)
			return
		}
		action, data, err = RecvPacket(conn, session)
		if err != nil {
			r.Filters.LogError("HandleConnection", "%s %s: read post-handshake packet: %v", corrID, peer, err)
			return
		}
	} else if r.Options.MustEncrypt {
		r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusRequiresEncryption, Version: ProtocolVersion})
		return
	}

	if action != protocol.ActionInit {
		r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusEncryptionError, Version: ProtocolVersion})
		return
	}

	init, err := protocol.DecodeInit(data)
	if err != nil {
		r.Filters.LogError("HandleConnection", "%s %s: decode init: %v", corrID, peer, err)
		return
	}

	if !ProtocolVersion.Compatible(init.Version) {
		r.Filters.LogError("HandleConnection", "%s %s: version mismatch: us=%+v them=%+v", corrID, peer, ProtocolVersion, init.Version)
		r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusWrongVersion, Version: ProtocolVersion})
		return
	}

	filename := r.sanitize(init.FileName)

	if init.Features&protocol.FeatureRename != 0 {
		filename = renameOnCollision(filename)
	}

	exists := fileExists(filename)
	if init.Features&protocol.FeatureOverwrite == 0 && exists {
		r.Filters.LogError("HandleConnection", "%s %s: refusing to overwrite %s", corrID, peer, filename)
		r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusNoOverwrite, Version: ProtocolVersion})
		return
	}

	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			r.Filters.LogError("HandleConnection", "%s %s: mkdir %s: %v", corrID, peer, dir, err)
			r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusNoPermission, Version: ProtocolVersion})
			return
		}
	}

	if exists && init.Features&protocol.FeatureBackup != 0 {
		if err := copyFile(filename, filename+".bak"); err != nil {
			r.Filters.LogError("HandleConnection", "%s %s: backup %s: %v", corrID, peer, filename, err)
		}
	}

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		r.Filters.LogError("HandleConnection", "%s %s: open %s: %v", corrID, peer, filename, err)
		r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusNoPermission, Version: ProtocolVersion})
		return
	}
	defer file.Close()

	if err := file.Chmod(os.FileMode(init.Chmod)); err != nil {
		r.Filters.LogError("HandleConnection", "%s %s: chmod %s: %v", corrID, peer, filename, err)
		r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusNoPermission, Version: ProtocolVersion})
		return
	}

	r.List.Add(filename)
	defer r.List.Remove(filename)

	r.Progress.FileStarted(filename, init.FileSize, DirectionReceive)

	resp := &protocol.InitAckPayload{Status: protocol.StatusProceed, Version: ProtocolVersion, Features: protocol.FeatureNewFile}

	priorSize := int64(0)
	if info, err := file.Stat(); err == nil {
		priorSize = info.Size()
	}

	if err := file.Truncate(int64(init.FileSize)); err != nil {
		r.Filters.LogError("HandleConnection", "%s %s: truncate %s: %v", corrID, peer, filename, err)
		r.sendAck(conn, session, &protocol.InitAckPayload{Status: protocol.StatusNoSpace, Version: ProtocolVersion})
		return
	}

	if priorSize > 0 {
		resp.Features |= protocol.FeatureOverwrite
		if init.Features&protocol.FeatureDelta != 0 {
			if _, err := file.Seek(0, io.SeekStart); err == nil {
				manifest, err := chunkhash.HashReader(file, init.FileSize)
				if err == nil {
					resp.Features |= protocol.FeatureDelta
					resp.Delta = &protocol.DeltaPayload{
						FileSize:  manifest.FileSize,
						WholeHash: manifest.WholeHash,
						ChunkSize: manifest.ChunkSize,
						ChunkHash: manifest.ChunkHash,
					}
				}
			}
		}
	}

	if err := r.sendAck(conn, session, resp); err != nil {
		r.Filters.LogError("HandleConnection", "%s %s: connection closed (%v). aborted %s", corrID, peer, err, filename)
		return
	}

	outcome := r.receiveLoop(conn, session, file, init.FileSize, start)
	r.Progress.FileCompleted(filename, outcome)
	r.recordLedger(corrID, filename, peer, start, init.FileSize, outcome)

	if outcome.Err != nil {
		r.Filters.LogError("HandleConnection", "%s %s: %v receiving %s", corrID, peer, outcome.Err, filename)
	}
}

// recordLedger writes a completed-transfer receipt, if a Ledger is configured. A write
// failure here is logged and otherwise ignored; it never affects the connection's outcome. The
// receipt's ID is the same correlation ID logged throughout HandleConnection, so a log line can
// be traced back to its ledger entry.
func (r *Receiver) recordLedger(corrID uuid.UUID, filename, peer string, start time.Time, fileSize uint64, outcome Outcome) {
	if r.Ledger == nil {
		return
	}
	rec := ledger.Record{
		ID:        corrID,
		Filename:  filename,
		Size:      fileSize,
		Direction: ledger.DirectionReceived,
		PeerAddr:  peer,
		StartedAt: start,
		Duration:  outcome.Duration,
	}
	if err := r.Ledger.Put(rec); err != nil {
		r.Filters.LogError("recordLedger", "%s: writing receipt for %s: %v", corrID, filename, err)
	}
}

func (r *Receiver) receiveLoop(conn net.Conn, session *Session, file *os.File, fileSize uint64, start time.Time) Outcome {
	var received uint64

	for {
		action, data, err := RecvPacket(conn, session)
		if err != nil {
			return Outcome{Bytes: received, Duration: time.Since(start), Err: err}
		}
		if action != protocol.ActionData {
			return Outcome{Bytes: received, Duration: time.Since(start), Err: ErrUnexpectedAction}
		}

		chunk, err := protocol.DecodeData(data)
		if err != nil {
			return Outcome{Bytes: received, Duration: time.Since(start), Err: err}
		}

		if len(chunk.Data) == 0 {
			if received == fileSize || (chunk.Offset == fileSize) {
				return Outcome{Bytes: received, Duration: time.Since(start)}
			}
			return Outcome{Bytes: received, Duration: time.Since(start), Err: ErrOvershoot}
		}

		if _, err := file.Seek(int64(chunk.Offset), io.SeekStart); err != nil {
			return Outcome{Bytes: received, Duration: time.Since(start), Err: err}
		}

		n, err := file.Write(chunk.Data)
		if err != nil {
			return Outcome{Bytes: received, Duration: time.Since(start), Err: err}
		}
		if n != len(chunk.Data) {
			return Outcome{Bytes: received, Duration: time.Since(start), Err: ErrShortWrite}
		}

		received = chunk.Offset + uint64(len(chunk.Data))
		if received > fileSize {
			return Outcome{Bytes: received, Duration: time.Since(start), Err: ErrOvershoot}
		}
	}
}

func (r *Receiver) sendAck(conn net.Conn, session *Session, ack *protocol.InitAckPayload) error {
	return SendPacket(conn, protocol.ActionInitAck, session, ack.Encode())
}

// serverHandshake performs the receiver's half of the ECDH exchange given the already-read
// ECDH payload data.
func (r *Receiver) serverHandshake(conn net.Conn, ecdhData []byte) (*Session, error) {
	remote, err := protocol.DecodeEcdh(ecdhData)
	if err != nil {
		return nil, err
	}

	priv, pub, err := ourCrypto.GenerateEphemeral()
	if err != nil {
		return nil, err
	}

	ack := &protocol.EcdhPayload{PublicKey: pub}
	if err := SendPacket(conn, protocol.ActionEcdhAck, nil, ack.Encode()); err != nil {
		return nil, err
	}

	secret, err := ourCrypto.DeriveShared(priv, remote.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Session{Key: secret}, nil
}

// sanitize strips a leading '/' and removes every "../" substring, matching the reference
// implementation's documented (and deliberately weak, see DESIGN.md) path handling, unless
// the caller has opted into AllowDangerousFilepath.
func (r *Receiver) sanitize(filename string) string {
	if r.Options.AllowDangerousFilepath {
		return filename
	}
	filename = strings.TrimPrefix(filename, "/")
	filename = strings.ReplaceAll(filename, "../", "")
	return filename
}

func renameOnCollision(filename string) string {
	if !fileExists(filename) {
		return filename
	}
	for n := 1; ; n++ {
		candidate := filename + "." + strconv.Itoa(n)
		if !fileExists(candidate) {
			return candidate
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
