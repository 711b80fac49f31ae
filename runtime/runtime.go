package runtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/engine"
	"github.com/wippyai/mxbridge/transcoder"
)

// Runtime owns the session registry and the codecs shared by its engines.
type Runtime struct {
	registry     *engine.Registry
	logger       *zap.Logger
	encoder      *transcoder.Encoder
	decoder      *transcoder.Decoder
	decoderOpts  []transcoder.DecoderOption
	ownsRegistry bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used by the runtime, its registry and its
// sessions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRegistry shares an existing registry. The runtime does not close it.
func WithRegistry(reg *engine.Registry) Option {
	return func(r *Runtime) {
		r.registry = reg
	}
}

// WithDecoderOptions tunes how engine values are decoded.
func WithDecoderOptions(opts ...transcoder.DecoderOption) Option {
	return func(r *Runtime) {
		r.decoderOpts = append(r.decoderOpts, opts...)
	}
}

// New creates a runtime that opens engine connections with connector.
func New(connector mxbridge.Connector, opts ...Option) *Runtime {
	r := &Runtime{logger: engine.Logger()}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = engine.NewRegistry(connector, engine.WithRegistryLogger(r.logger))
		r.ownsRegistry = true
	}
	r.encoder = transcoder.NewEncoder()
	r.decoder = transcoder.NewDecoder(r.decoderOpts...)
	return r
}

// Registry returns the registry sessions are opened through.
func (r *Runtime) Registry() *engine.Registry {
	return r.registry
}

// Close closes every connection still held by the runtime's registry.
// Engines must not be used afterwards.
func (r *Runtime) Close() error {
	if !r.ownsRegistry {
		return nil
	}
	return r.registry.Close()
}

// Options describe one engine handle.
type Options struct {
	// BufferEnabled and Visible are left unchanged when nil.
	BufferEnabled *bool
	Visible       *bool

	// ID selects the shared connection; engines with the same ID share a
	// workspace.
	ID float64

	// BufferSize is the output capture size in bytes; zero means
	// engine.DefaultBufferSize.
	BufferSize int

	// Timeout bounds every call whose context has no deadline. Zero waits
	// for the engine indefinitely.
	Timeout time.Duration

	// DeferOpen leaves the engine closed until Open is called.
	DeferOpen bool
}

// Open creates an engine handle and, unless opts.DeferOpen is set, opens
// it.
func (r *Runtime) Open(ctx context.Context, opts Options) (*Engine, error) {
	if err := engine.CheckID(opts.ID); err != nil {
		return nil, err
	}
	sopts := []engine.SessionOption{
		engine.WithLogger(r.logger),
		engine.WithBufferSize(opts.BufferSize),
	}
	if opts.BufferEnabled != nil {
		sopts = append(sopts, engine.WithBufferEnabled(*opts.BufferEnabled))
	}
	e := &Engine{
		runtime: r,
		session: engine.NewSession(r.registry, opts.ID, sopts...),
		visible: opts.Visible,
		timeout: opts.Timeout,
	}
	if opts.DeferOpen {
		return e, nil
	}
	if err := e.Open(ctx); err != nil {
		return nil, err
	}
	return e, nil
}
