package loopback

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/errors"
)

// Stats counts connector activity.
type Stats struct {
	Opens  int64
	Closes int64
	Evals  int64
}

// Connector opens in-process engine connections. Each connection has its
// own workspace.
type Connector struct {
	logger      *zap.Logger
	opens       atomic.Int64
	closes      atomic.Int64
	evals       atomic.Int64
	unreachable bool
}

var _ mxbridge.Connector = (*Connector)(nil)

// Option configures a Connector.
type Option func(*Connector)

// WithUnreachable makes every Open fail as if no engine could be started.
func WithUnreachable() Option {
	return func(c *Connector) {
		c.unreachable = true
	}
}

// WithLogger sets the connector logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Connector) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a connector.
func New(opts ...Option) *Connector {
	c := &Connector{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a new engine connection.
func (c *Connector) Open(ctx context.Context) (mxbridge.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ConnectionFailed(errors.PhaseEngine, "start engine", err)
	}
	if c.unreachable {
		return nil, errors.ConnectionFailed(errors.PhaseEngine, "start engine: engine is unreachable", nil)
	}
	n := c.opens.Add(1)
	c.logger.Debug("loopback engine started", zap.Int64("opens", n))
	return newConn(c), nil
}

// Stats returns a snapshot of the connector counters.
func (c *Connector) Stats() Stats {
	return Stats{
		Opens:  c.opens.Load(),
		Closes: c.closes.Load(),
		Evals:  c.evals.Load(),
	}
}
