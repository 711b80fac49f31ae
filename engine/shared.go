package engine

import (
	"context"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/resource"
)

// SharedConn is one physical engine connection shared by every session
// opened with the same id. All calls go through its lock.
type SharedConn struct {
	conn    mxbridge.Conn
	lock    chan struct{}
	dropErr error
	id      float64
	handle  resource.Handle
}

var _ resource.Dropper = (*SharedConn)(nil)

func newSharedConn(id float64, conn mxbridge.Conn) *SharedConn {
	return &SharedConn{
		conn: conn,
		lock: make(chan struct{}, 1),
		id:   id,
	}
}

// ID returns the registry key the connection was opened for.
func (c *SharedConn) ID() float64 {
	return c.id
}

// Do runs fn with exclusive access to the connection. Waiting for the lock
// respects ctx. If ctx can be cancelled, fn runs on its own goroutine and
// Do returns ctx.Err() when ctx ends first; fn keeps the lock until it
// returns.
func (c *SharedConn) Do(ctx context.Context, fn func(mxbridge.Conn) error) error {
	select {
	case c.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if ctx.Done() == nil {
		defer c.unlock()
		return fn(c.conn)
	}

	done := make(chan error, 1)
	go func() {
		defer c.unlock()
		done <- fn(c.conn)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SharedConn) unlock() {
	<-c.lock
}

// Drop runs when the registry table lets go of the last reference. It waits
// for any running call, then closes the connection. The close error is
// kept for the releasing caller.
func (c *SharedConn) Drop() {
	c.lock <- struct{}{}
	defer c.unlock()
	if err := c.conn.Close(); err != nil {
		c.dropErr = errors.ConnectionFailed(errors.PhaseRegistry, "close engine connection", err)
	}
}
