package runtime

import (
	"context"
	"time"

	"github.com/wippyai/mxbridge/engine"
	"github.com/wippyai/mxbridge/mxarray"
	"github.com/wippyai/mxbridge/transcoder"
)

// Engine is a handle on an engine session that exchanges Go values.
type Engine struct {
	runtime *Runtime
	session *engine.Session
	visible *bool
	timeout time.Duration
}

// Session returns the underlying session.
func (e *Engine) Session() *engine.Session {
	return e.session
}

func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

// Open connects the engine. It does nothing when already open.
func (e *Engine) Open(ctx context.Context) error {
	if e.session.IsOpen() {
		return nil
	}
	ctx, cancel := e.bound(ctx)
	defer cancel()
	if err := e.session.Open(ctx); err != nil {
		return err
	}
	if e.visible != nil {
		if err := e.session.SetVisible(ctx, *e.visible); err != nil {
			_ = e.session.Close()
			return err
		}
	}
	return nil
}

// Close disconnects the engine. The connection closes when no other engine
// shares it.
func (e *Engine) Close() error {
	return e.session.Close()
}

func (e *Engine) IsOpen() bool {
	return e.session.IsOpen()
}

// Evaluate runs expr and returns the captured output.
func (e *Engine) Evaluate(ctx context.Context, expr string) (string, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.session.Evaluate(ctx, expr)
}

// GetVariable returns a decoded copy of a workspace variable.
func (e *Engine) GetVariable(ctx context.Context, name string) (any, error) {
	a, err := e.getArray(ctx, name)
	if err != nil {
		return nil, err
	}
	defer a.Destroy()
	return e.runtime.decoder.Decode(a)
}

// GetArray returns a workspace variable wrapped in a Holder whose Value
// aliases the array's numeric storage. The caller must Close the holder.
func (e *Engine) GetArray(ctx context.Context, name string) (*transcoder.Holder, error) {
	a, err := e.getArray(ctx, name)
	if err != nil {
		return nil, err
	}
	return transcoder.NewHolder(a, e.runtime.decoderOpts...), nil
}

func (e *Engine) getArray(ctx context.Context, name string) (*mxarray.Array, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.session.GetVariable(ctx, name)
}

// PutVariable encodes value and stores it under name.
func (e *Engine) PutVariable(ctx context.Context, name string, value any) error {
	a, err := e.runtime.encoder.Encode(value)
	if err != nil {
		return err
	}
	defer a.Destroy()
	return e.PutArray(ctx, name, a)
}

// PutArray stores a copy of a under name. The caller keeps ownership of a.
func (e *Engine) PutArray(ctx context.Context, name string, a *mxarray.Array) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.session.PutVariable(ctx, name, a)
}

func (e *Engine) Visible(ctx context.Context) (bool, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.session.Visible(ctx)
}

func (e *Engine) SetVisible(ctx context.Context, visible bool) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.session.SetVisible(ctx, visible)
}

func (e *Engine) BufferEnabled() bool {
	return e.session.BufferEnabled()
}

func (e *Engine) SetBufferEnabled(ctx context.Context, enabled bool) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.session.SetBufferEnabled(ctx, enabled)
}

func (e *Engine) BufferSize() int {
	return e.session.BufferSize()
}

func (e *Engine) SetBufferSize(ctx context.Context, n int) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.session.SetBufferSize(ctx, n)
}

// Buffer returns the output of the last Evaluate; ok is false when nothing
// was captured.
func (e *Engine) Buffer() (string, bool) {
	return e.session.Buffer()
}
