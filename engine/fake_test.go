package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

// fakeConn is an in-memory connection. Eval echoes the expression unless
// evalFn is set.
type fakeConn struct {
	evalFn   func(expr string) (string, error)
	vars     map[string]*mxarray.Array
	closeErr error
	bindErr  error
	owner    *fakeConnector
	buf      []byte
	mu       sync.Mutex
	visible  bool
	closed   bool
}

func (c *fakeConn) Eval(expr string) error {
	out, err := expr+"\n", error(nil)
	if c.evalFn != nil {
		out, err = c.evalFn(expr)
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf != nil {
		n := copy(c.buf, out)
		if n < len(c.buf) {
			c.buf[n] = 0
		}
	}
	return nil
}

func (c *fakeConn) GetVariable(name string) (*mxarray.Array, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.vars[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseEngine, "variable", name)
	}
	return a.Duplicate()
}

func (c *fakeConn) PutVariable(name string, value *mxarray.Array) error {
	dup, err := value.Duplicate()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.vars[name]; ok {
		old.Destroy()
	}
	c.vars[name] = dup
	return nil
}

func (c *fakeConn) Visible() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible, nil
}

func (c *fakeConn) SetVisible(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = v
	return nil
}

func (c *fakeConn) SetOutputBuffer(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindErr != nil {
		return c.bindErr
	}
	c.buf = buf
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return stderrors.New("already closed")
	}
	c.closed = true
	for _, a := range c.vars {
		a.Destroy()
	}
	c.owner.closes.Add(1)
	return c.closeErr
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeConnector struct {
	evalFn   func(expr string) (string, error)
	openErr  error
	closeErr error
	bindErr  error
	conns    []*fakeConn
	delay    time.Duration
	opens    atomic.Int64
	closes   atomic.Int64
	mu       sync.Mutex
}

func (f *fakeConnector) Open(ctx context.Context) (mxbridge.Conn, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens.Add(1)
	c := &fakeConn{
		evalFn:   f.evalFn,
		vars:     make(map[string]*mxarray.Array),
		closeErr: f.closeErr,
		bindErr:  f.bindErr,
		owner:    f,
	}
	f.mu.Lock()
	f.conns = append(f.conns, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeConnector) last() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}
