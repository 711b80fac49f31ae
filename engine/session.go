package engine

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

// DefaultBufferSize is the output capture buffer size of a new session.
const DefaultBufferSize = 256

// Session is a logical engine handle. Sessions with the same id share one
// connection through the registry.
type Session struct {
	registry   *Registry
	shared     *SharedConn
	logger     *zap.Logger
	handle     string
	last       string
	buf        []byte
	id         float64
	inflight   int
	mu         sync.Mutex
	openMu     sync.Mutex
	bufEnabled bool
	captured   bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBufferSize sets the output capture buffer size. Values below one are
// ignored.
func WithBufferSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.buf = make([]byte, n)
		}
	}
}

// WithBufferEnabled turns output capture on or off.
func WithBufferEnabled(enabled bool) SessionOption {
	return func(s *Session) {
		s.bufEnabled = enabled
	}
}

// NewSession creates a closed session for id.
func NewSession(registry *Registry, id float64, opts ...SessionOption) *Session {
	s := &Session{
		registry:   registry,
		handle:     uuid.NewString(),
		buf:        make([]byte, DefaultBufferSize),
		id:         id,
		bufEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = registry.logger
	}
	s.logger = s.logger.With(idField(id), zap.String("handle", s.handle))
	return s
}

// ID returns the registry key of the session.
func (s *Session) ID() float64 {
	return s.id
}

// Handle returns the unique handle id used in log entries.
func (s *Session) Handle() string {
	return s.handle
}

// IsOpen reports whether the session holds a connection.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shared != nil
}

// Open acquires the shared connection for the session id. Opening an open
// session does nothing.
func (s *Session) Open(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	if s.IsOpen() {
		return nil
	}

	sc, err := s.registry.Acquire(ctx, s.id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.shared = sc
	s.mu.Unlock()
	if err := s.bind(ctx); err != nil {
		s.mu.Lock()
		s.shared = nil
		s.mu.Unlock()
		if rerr := s.registry.Release(s.id); rerr != nil {
			s.logger.Warn("release after failed open", zap.Error(rerr))
		}
		return err
	}
	s.logger.Debug("session opened")
	return nil
}

// Close releases the session's connection reference. Closing a closed
// session does nothing; closing one with a call in flight fails with
// KindBusy.
func (s *Session) Close() error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	s.mu.Lock()
	if s.shared == nil {
		s.mu.Unlock()
		return nil
	}
	if s.inflight > 0 {
		s.mu.Unlock()
		return errors.Busy(errors.PhaseSession, "cannot close a session with a call in progress")
	}
	s.shared = nil
	s.mu.Unlock()

	s.logger.Debug("session closed")
	return s.registry.Release(s.id)
}

// begin marks a call in flight and returns the connection to use.
func (s *Session) begin() (*SharedConn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared == nil {
		return nil, false
	}
	s.inflight++
	return s.shared, true
}

func (s *Session) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

// Evaluate runs expr in the engine and returns the captured output, or ""
// when capture is disabled.
func (s *Session) Evaluate(ctx context.Context, expr string) (string, error) {
	sc, ok := s.begin()
	if !ok {
		return "", errors.EvaluationFailed(expr, errors.NotOpen(errors.PhaseSession, "evaluate"))
	}
	defer s.end()

	s.mu.Lock()
	var buf []byte
	if s.bufEnabled {
		buf = s.buf
	}
	s.mu.Unlock()

	var out string
	err := sc.Do(ctx, func(conn mxbridge.Conn) error {
		clear(buf)
		if err := conn.SetOutputBuffer(buf); err != nil {
			return err
		}
		if err := conn.Eval(expr); err != nil {
			return err
		}
		out = readOutput(buf)
		return nil
	})
	if err != nil {
		s.logger.Debug("evaluate failed", zap.String("expr", expr), zap.Error(err))
		return "", errors.EvaluationFailed(expr, err)
	}

	s.mu.Lock()
	s.last, s.captured = out, buf != nil
	s.mu.Unlock()
	s.logger.Debug("evaluated", zap.String("expr", expr), zap.Int("bytes", len(out)))
	return out, nil
}

// readOutput returns the text in buf up to the first NUL.
func readOutput(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// GetVariable returns a copy of a workspace variable. The caller owns the
// array.
func (s *Session) GetVariable(ctx context.Context, name string) (*mxarray.Array, error) {
	if !ValidName(name) {
		return nil, errors.InvalidInput(errors.PhaseSession, "invalid variable name "+quote(name))
	}
	sc, ok := s.begin()
	if !ok {
		return nil, errors.NotOpen(errors.PhaseSession, "get variable")
	}
	defer s.end()

	var a *mxarray.Array
	err := sc.Do(ctx, func(conn mxbridge.Conn) error {
		var err error
		a, err = conn.GetVariable(name)
		return err
	})
	if err != nil || a == nil {
		if a != nil {
			a.Destroy()
		}
		if err == nil || errors.IsKind(err, errors.KindNotFound) {
			return nil, errors.NotFound(errors.PhaseSession, "variable", name)
		}
		return nil, s.callFailed("get variable "+name, err)
	}
	s.logger.Debug("got variable", zap.String("variable", name), zap.Stringer("class", a.Class()))
	return a, nil
}

// PutVariable stores a copy of value under name. The caller keeps ownership
// of value.
func (s *Session) PutVariable(ctx context.Context, name string, value *mxarray.Array) error {
	if !ValidName(name) {
		return errors.InvalidInput(errors.PhaseSession, "invalid variable name "+quote(name))
	}
	if value == nil {
		return errors.InvalidInput(errors.PhaseSession, "nil array for variable "+quote(name))
	}
	if value.Destroyed() {
		return errors.Destroyed(errors.PhaseSession, "array for variable "+quote(name))
	}
	sc, ok := s.begin()
	if !ok {
		return errors.NotOpen(errors.PhaseSession, "put variable")
	}
	defer s.end()

	err := sc.Do(ctx, func(conn mxbridge.Conn) error {
		return conn.PutVariable(name, value)
	})
	if err != nil {
		return s.callFailed("put variable "+name, err)
	}
	s.logger.Debug("put variable", zap.String("variable", name), zap.Stringer("class", value.Class()))
	return nil
}

// Visible reports whether the engine desktop is shown.
func (s *Session) Visible(ctx context.Context) (bool, error) {
	sc, ok := s.begin()
	if !ok {
		return false, errors.NotOpen(errors.PhaseSession, "visible")
	}
	defer s.end()

	var visible bool
	err := sc.Do(ctx, func(conn mxbridge.Conn) error {
		var err error
		visible, err = conn.Visible()
		return err
	})
	if err != nil {
		return false, s.callFailed("visible", err)
	}
	return visible, nil
}

// SetVisible shows or hides the engine desktop.
func (s *Session) SetVisible(ctx context.Context, visible bool) error {
	sc, ok := s.begin()
	if !ok {
		return errors.NotOpen(errors.PhaseSession, "set visible")
	}
	defer s.end()

	err := sc.Do(ctx, func(conn mxbridge.Conn) error {
		return conn.SetVisible(visible)
	})
	if err != nil {
		return s.callFailed("set visible", err)
	}
	return nil
}

// BufferEnabled reports whether output is captured.
func (s *Session) BufferEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufEnabled
}

// SetBufferEnabled turns output capture on or off and rebinds the
// connection when the session is open. Disabling capture discards the last
// captured output.
func (s *Session) SetBufferEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.bufEnabled = enabled
	if !enabled {
		s.last, s.captured = "", false
	}
	s.mu.Unlock()
	return s.bind(ctx)
}

// BufferSize returns the capture buffer size in bytes.
func (s *Session) BufferSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// SetBufferSize reallocates the capture buffer and rebinds it to the
// connection when the session is open.
func (s *Session) SetBufferSize(ctx context.Context, n int) error {
	if n <= 0 {
		return errors.New(errors.PhaseSession, errors.KindInvalidInput).
			Value(n).
			Detail("buffer size must be positive, got %d", n).
			Build()
	}
	s.mu.Lock()
	s.buf = make([]byte, n)
	s.mu.Unlock()
	return s.bind(ctx)
}

// bind registers the current capture buffer, or none, with the connection.
// Evaluate binds again before every call since sessions share connections.
func (s *Session) bind(ctx context.Context) error {
	sc, ok := s.begin()
	if !ok {
		return nil
	}
	defer s.end()

	s.mu.Lock()
	var buf []byte
	if s.bufEnabled {
		buf = s.buf
	}
	s.mu.Unlock()

	err := sc.Do(ctx, func(conn mxbridge.Conn) error {
		return conn.SetOutputBuffer(buf)
	})
	if err != nil {
		return s.callFailed("bind output buffer", err)
	}
	s.logger.Debug("output buffer bound", zap.Int("bytes", len(buf)))
	return nil
}

// Buffer returns the output captured by the last Evaluate. ok is false when
// nothing has been captured.
func (s *Session) Buffer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.captured
}

// callFailed wraps a connection error, keeping the kind of structured
// errors the connection reported.
func (s *Session) callFailed(op string, err error) error {
	kind, ok := errors.KindOf(err)
	if !ok {
		kind = errors.KindConnection
	}
	s.logger.Debug(op+" failed", zap.Error(err))
	return errors.Wrap(errors.PhaseSession, kind, err, op)
}

func quote(s string) string {
	return "\"" + s + "\""
}
