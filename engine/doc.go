// Package engine manages engine sessions and the physical connections they
// share.
//
// # Architecture
//
// The engine package provides three main types:
//
//	Registry   - Maps session ids to shared connections, refcounted
//	SharedConn - One physical engine connection plus its call lock
//	Session    - A logical handle: output capture, variables, visibility
//
// # Session Lifecycle
//
//  1. NewSession creates a closed session for an id
//  2. Session.Open acquires the shared connection for that id
//  3. Evaluate, GetVariable and PutVariable run under the connection lock
//  4. Session.Close releases the registry reference; the connection closes
//     when the last session using it lets go
//
// Sessions with the same id share one connection and therefore one engine
// workspace. Each session keeps its own output capture buffer; the buffer is
// bound to the connection at the start of every Evaluate.
//
// # Deadlines
//
// Engine calls cannot be cancelled. When the context passed to a call has a
// deadline, the caller stops waiting when it expires and the call finishes
// in the background while still holding the connection lock.
//
// # Thread Safety
//
// Registry, SharedConn and Session are safe for concurrent use. Calls on
// one connection are serialized.
package engine
