package mxbridge

import (
	"context"

	"github.com/wippyai/mxbridge/mxarray"
)

// Conn is one live connection to an engine process. Implementations need
// not be safe for concurrent use; callers serialize access.
type Conn interface {
	// Eval evaluates expr in the engine workspace. Output produced while
	// evaluating is written to the buffer set by SetOutputBuffer.
	Eval(expr string) error

	// GetVariable returns a copy of a workspace variable owned by the caller.
	GetVariable(name string) (*mxarray.Array, error)

	// PutVariable stores a copy of value; the caller keeps ownership.
	PutVariable(name string, value *mxarray.Array) error

	Visible() (bool, error)
	SetVisible(visible bool) error

	// SetOutputBuffer binds buf as the output capture buffer. Output is
	// NUL-terminated when shorter than buf. A nil buf disables capture.
	SetOutputBuffer(buf []byte) error

	Close() error
}

// Connector opens engine connections.
type Connector interface {
	Open(ctx context.Context) (Conn, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Conn, error)

func (f ConnectorFunc) Open(ctx context.Context) (Conn, error) { return f(ctx) }
