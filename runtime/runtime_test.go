package runtime

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/engine"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/loopback"
	"github.com/wippyai/mxbridge/mxarray"
	"github.com/wippyai/mxbridge/transcoder"
)

func newRuntime(t *testing.T, opts ...Option) (*Runtime, *loopback.Connector) {
	t.Helper()
	conn := loopback.New()
	rt := New(conn, opts...)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, conn
}

func openEngine(t *testing.T, rt *Runtime, opts Options) *Engine {
	t.Helper()
	e, err := rt.Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_Evaluate(t *testing.T) {
	rt, _ := newRuntime(t)
	e := openEngine(t, rt, Options{ID: 1})
	ctx := context.Background()

	out, err := e.Evaluate(ctx, "x = 3+4")
	require.NoError(t, err)
	assert.Contains(t, out, "7")

	last, ok := e.Buffer()
	assert.True(t, ok)
	assert.Equal(t, out, last)

	v, err := e.GetVariable(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
}

func TestEngine_PutGet(t *testing.T) {
	rt, _ := newRuntime(t)
	e := openEngine(t, rt, Options{ID: 1})
	ctx := context.Background()

	require.NoError(t, e.PutVariable(ctx, "y", []float64{1, 2, 3}))
	_, err := e.Evaluate(ctx, "z = y(2);")
	require.NoError(t, err)

	z, err := e.GetVariable(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, 2.0, z)

	y, err := e.GetVariable(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, y)

	obj := transcoder.NewObject().Set("name", "ada").Set("tags", []any{"a", 1.0})
	require.NoError(t, e.PutVariable(ctx, "rec", obj))
	got, err := e.GetVariable(ctx, "rec")
	require.NoError(t, err)
	name, _ := got.(*transcoder.Object).Get("name")
	assert.Equal(t, "ada", name)

	_, err = e.GetVariable(ctx, "missing")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	err = e.PutVariable(ctx, "f", func() {})
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedValue))
}

func TestEngine_GetArrayAliases(t *testing.T) {
	rt, _ := newRuntime(t)
	e := openEngine(t, rt, Options{ID: 1})
	ctx := context.Background()

	require.NoError(t, e.PutVariable(ctx, "buf", []int16{4, 5, 6}))
	h, err := e.GetArray(ctx, "buf")
	require.NoError(t, err)

	v1, err := h.Value()
	require.NoError(t, err)
	v2, err := h.Value()
	require.NoError(t, err)
	assert.Equal(t, 1, h.Cache().Buffers())

	view1, view2 := v1.(*transcoder.View), v2.(*transcoder.View)
	view1.Release()
	d, ok := transcoder.ViewData[int16](view2)
	require.True(t, ok)
	assert.Equal(t, []int16{4, 5, 6}, d, "surviving view still reads its data")

	assert.True(t, errors.IsKind(h.SetValue(1.0), errors.KindBusy))
	view2.Release()
	assert.Zero(t, h.Cache().Buffers())
	h.Close()
	assert.True(t, h.Destroyed())
}

func TestRuntime_SharedSessions(t *testing.T) {
	rt, conn := newRuntime(t)
	ctx := context.Background()

	a := openEngine(t, rt, Options{ID: 7})
	b := openEngine(t, rt, Options{ID: 7})
	c := openEngine(t, rt, Options{ID: 8})

	assert.Equal(t, 2, rt.Registry().RefCount(7))
	assert.Equal(t, 1, rt.Registry().RefCount(8))
	assert.EqualValues(t, 2, conn.Stats().Opens)

	require.NoError(t, a.PutVariable(ctx, "v", 5.0))
	v, err := b.GetVariable(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v, "same id shares the workspace")
	_, err = c.GetVariable(ctx, "v")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	require.NoError(t, a.Close())
	assert.Equal(t, 1, rt.Registry().RefCount(7))
	assert.EqualValues(t, 0, conn.Stats().Closes)
	require.NoError(t, b.Close())
	assert.Equal(t, 0, rt.Registry().RefCount(7))
	assert.EqualValues(t, 1, conn.Stats().Closes)
}

func TestRuntime_DeferOpenAndOptions(t *testing.T) {
	rt, conn := newRuntime(t)
	ctx := context.Background()
	off, on := false, true

	e, err := rt.Open(ctx, Options{ID: 2, DeferOpen: true, BufferSize: 32, BufferEnabled: &off, Visible: &on})
	require.NoError(t, err)
	assert.False(t, e.IsOpen())
	assert.EqualValues(t, 0, conn.Stats().Opens)
	assert.Equal(t, 32, e.BufferSize())
	assert.False(t, e.BufferEnabled())

	_, err = e.Evaluate(ctx, "1")
	assert.True(t, errors.IsKind(err, errors.KindEvaluation))

	require.NoError(t, e.Open(ctx))
	require.NoError(t, e.Open(ctx))
	assert.EqualValues(t, 1, conn.Stats().Opens)

	visible, err := e.Visible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)

	out, err := e.Evaluate(ctx, "x = 1")
	require.NoError(t, err)
	assert.Empty(t, out, "capture disabled")
	_, ok := e.Buffer()
	assert.False(t, ok)

	require.NoError(t, e.SetBufferEnabled(ctx, true))
	require.NoError(t, e.SetBufferSize(ctx, 4))
	out, err = e.Evaluate(ctx, "x = 1")
	require.NoError(t, err)
	assert.Equal(t, "x =\n", out)

	require.NoError(t, e.SetVisible(ctx, false))
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestRuntime_Unreachable(t *testing.T) {
	rt := New(loopback.New(loopback.WithUnreachable()))
	defer rt.Close()

	_, err := rt.Open(context.Background(), Options{ID: 1})
	assert.True(t, errors.IsKind(err, errors.KindConnection))
	assert.Zero(t, rt.Registry().Len())
}

func TestRuntime_NonFiniteID(t *testing.T) {
	rt, conn := newRuntime(t)
	for _, opts := range []Options{{ID: math.NaN()}, {ID: math.Inf(1), DeferOpen: true}} {
		_, err := rt.Open(context.Background(), opts)
		assert.True(t, errors.IsKind(err, errors.KindInvalidInput), "Open(%v) err = %v", opts.ID, err)
	}
	assert.Zero(t, conn.Stats().Opens)
	assert.Zero(t, rt.Registry().Len())
}

func TestRuntime_Close(t *testing.T) {
	conn := loopback.New()
	rt := New(conn)
	for _, id := range []float64{1, 2, 3} {
		_, err := rt.Open(context.Background(), Options{ID: id})
		require.NoError(t, err)
	}
	require.NoError(t, rt.Close())
	assert.EqualValues(t, 3, conn.Stats().Closes)

	_, err := rt.Open(context.Background(), Options{ID: 1})
	assert.True(t, errors.IsKind(err, errors.KindConnection))
}

func TestRuntime_SharedRegistry(t *testing.T) {
	conn := loopback.New()
	reg := engine.NewRegistry(conn)
	defer reg.Close()

	rt1 := New(conn, WithRegistry(reg))
	rt2 := New(conn, WithRegistry(reg))
	e1 := openEngine(t, rt1, Options{ID: 1})
	openEngine(t, rt2, Options{ID: 1})
	assert.Equal(t, 2, reg.RefCount(1))

	require.NoError(t, rt1.Close())
	assert.True(t, e1.IsOpen(), "runtime does not close a registry it does not own")
}

func TestRuntime_DecoderOptions(t *testing.T) {
	rt, _ := newRuntime(t, WithDecoderOptions(transcoder.WithMaxDepth(2)))
	e := openEngine(t, rt, Options{ID: 1})
	ctx := context.Background()

	require.NoError(t, e.PutVariable(ctx, "deep", []any{[]any{[]any{1.0}}}))
	_, err := e.GetVariable(ctx, "deep")
	assert.True(t, errors.IsKind(err, errors.KindDepthExceeded))
}

// stallingConn blocks Eval until release is closed.
type stallingConn struct {
	mxbridge.Conn
	release chan struct{}
}

func (c *stallingConn) Eval(expr string) error {
	<-c.release
	return c.Conn.Eval(expr)
}

func TestEngine_Timeout(t *testing.T) {
	release := make(chan struct{})
	inner := loopback.New()
	connector := mxbridge.ConnectorFunc(func(ctx context.Context) (mxbridge.Conn, error) {
		c, err := inner.Open(ctx)
		if err != nil {
			return nil, err
		}
		return &stallingConn{Conn: c, release: release}, nil
	})
	rt := New(connector)
	defer rt.Close()

	e, err := rt.Open(context.Background(), Options{ID: 1, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), "x = 1")
	assert.True(t, errors.IsKind(err, errors.KindEvaluation))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	out, err := e.Evaluate(context.Background(), "x + 1")
	require.NoError(t, err)
	assert.Contains(t, out, "2")
	require.NoError(t, e.Close())
}

func TestEngine_ConcurrentUse(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := rt.Open(ctx, Options{ID: 1})
			if !assert.NoError(t, err) {
				return
			}
			defer e.Close()
			for i := 0; i < 10; i++ {
				out, err := e.Evaluate(ctx, "a = 1 + 1")
				assert.NoError(t, err)
				assert.Contains(t, out, "2")
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, rt.Registry().Len())
}

func TestRuntime_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rt, _ := newRuntime(t, WithLogger(zap.New(core)))
	e := openEngine(t, rt, Options{ID: 1})

	_, err := e.Evaluate(context.Background(), "x = 1;")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("engine connection opened").Len())
	assert.Equal(t, 1, logs.FilterMessage("evaluated").Len())
}

func TestEngine_NoLeaks(t *testing.T) {
	before := mxarray.Live()
	rt := New(loopback.New())
	e, err := rt.Open(context.Background(), Options{ID: 1})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, e.PutVariable(ctx, "s", map[string]any{"a": []any{1.0, "x"}}))
	_, err = e.GetVariable(ctx, "s")
	require.NoError(t, err)
	_, err = e.Evaluate(ctx, "t = s;")
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, rt.Close())
	assert.Equal(t, before, mxarray.Live())
}
