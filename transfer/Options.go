package transfer

import "github.com/genonullfree/teleporter/protocol"

// FileSpec names one file to send: a local path and the name it should be stored as on the
// remote side. The `orig:new` rename syntax and recursive directory expansion that produce
// these are owned by the CLI, not the core.
type FileSpec struct {
	LocalPath  string
	RemoteName string
}

// SendOptions configures one Sender batch run.
type SendOptions struct {
	Dest     string
	Port     int
	Files    []FileSpec
	Overwrite bool
	Encrypt  bool
	NoDelta  bool
	KeepPath bool
	Backup   bool
	Rename   bool // client requests server-side auto-rename on name collision
}

// ListenOptions configures one Listener.
type ListenOptions struct {
	Port                   int
	MustEncrypt            bool
	AllowDangerousFilepath bool
}

// ProtocolVersion is this implementation's (major, minor, patch). Only major and minor are
// checked for compatibility between endpoints.
var ProtocolVersion = protocol.Version{Major: 1, Minor: 0, Patch: 0}
