package transfer

import "errors"

// Errors returned by the Sender/Receiver that do not originate in the protocol codec or AEAD
// layers (those surface protocol.Err* and crypto.ErrEncryptionFailure directly).
var (
	// ErrInvalidDest is returned when the destination address cannot be parsed; a batch abort.
	ErrInvalidDest = errors.New("transfer: invalid destination address")

	// ErrVersionMismatch is returned by the Sender when the remote rejects with WrongVersion.
	ErrVersionMismatch = errors.New("transfer: incompatible protocol version")

	// ErrRequiresEncryption is returned by the Sender when the remote rejects with RequiresEncryption.
	ErrRequiresEncryption = errors.New("transfer: remote requires encryption")

	// ErrEncryptionPolicy is returned by the Sender when the remote rejects with EncryptionError.
	ErrEncryptionPolicy = errors.New("transfer: remote reported encryption error")

	// ErrRefused covers per-file policy rejections (NoOverwrite/NoPermission/NoSpace); the
	// Sender skips the file and continues the batch.
	ErrRefused = errors.New("transfer: remote refused file")

	// ErrShortWrite is returned by the Receiver when a file write short-counts.
	ErrShortWrite = errors.New("transfer: short write, destination out of space?")

	// ErrOvershoot is returned by the Receiver when received bytes exceed the declared file size,
	// and also when the terminal DATA frame arrives before the declared file size was reached
	// (its offset is not the file size).
	ErrOvershoot = errors.New("transfer: received more data than the declared file size")

	// ErrUnexpectedAction is returned when a peer sends an action the state machine does not expect.
	ErrUnexpectedAction = errors.New("transfer: unexpected action for current state")
)
