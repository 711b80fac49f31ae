package engine

import (
	"context"
	"math"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/resource"
)

// Registry hands out shared connections keyed by session id. The resource
// table holds one reference per acquiring session; the connection closes
// when the count reaches zero.
type Registry struct {
	connector mxbridge.Connector
	table     *resource.UnifiedTable
	handles   map[float64]resource.Handle
	logger    *zap.Logger
	group     singleflight.Group
	releasing sync.WaitGroup
	mu        sync.Mutex
	closed    bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry that opens connections with
// connector.
func NewRegistry(connector mxbridge.Connector, opts ...RegistryOption) *Registry {
	r := &Registry{
		connector: connector,
		table:     resource.NewTable(),
		handles:   make(map[float64]resource.Handle),
		logger:    Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.table.Subscribe(resource.ObserverFunc(r.observe))
	return r
}

func (r *Registry) observe(e resource.Event) {
	if e.Type == resource.EventCreated || e.Type == resource.EventDropped {
		return
	}
	r.logger.Debug("connection refcount",
		zap.Stringer("event", e.Type),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Int("refs", e.Refs))
}

// CheckID rejects session ids that cannot serve as registry keys: NaN never
// equals itself and infinities are not valid ids.
func CheckID(id float64) error {
	if math.IsNaN(id) || math.IsInf(id, 0) {
		return errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
			Value(id).
			Detail("session id must be a finite number").
			Build()
	}
	return nil
}

// Acquire returns the shared connection for id, opening it on first use.
// Every successful Acquire must be paired with a Release. Concurrent first
// acquires of one id open a single connection; they share the open of
// whichever caller arrived first, including its ctx.
func (r *Registry) Acquire(ctx context.Context, id float64) (*SharedConn, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	for {
		if sc, ok, err := r.retain(id); ok || err != nil {
			return sc, err
		}

		key := strconv.FormatFloat(id, 'g', -1, 64)
		var owned bool
		v, err, _ := r.group.Do(key, func() (any, error) {
			owned = true
			return r.open(ctx, id)
		})
		if err != nil {
			return nil, err
		}
		if owned {
			return v.(*SharedConn), nil
		}

		// The open belonged to another caller; take our own reference if the
		// connection is still registered, otherwise start over.
		sc := v.(*SharedConn)
		r.mu.Lock()
		if h, ok := r.handles[id]; ok {
			if cur, _ := r.table.Get(h); cur == sc {
				r.table.Retain(h)
				r.mu.Unlock()
				return sc, nil
			}
		}
		r.mu.Unlock()
	}
}

func (r *Registry) retain(id float64) (*SharedConn, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, errors.ConnectionFailed(errors.PhaseRegistry, "registry closed", nil)
	}
	h, ok := r.handles[id]
	if !ok {
		return nil, false, nil
	}
	v, _ := r.table.GetTyped(h, resource.TypeConnection)
	r.table.Retain(h)
	return v.(*SharedConn), true, nil
}

// open connects to the engine and registers the connection with one
// reference owned by the caller.
func (r *Registry) open(ctx context.Context, id float64) (*SharedConn, error) {
	if sc, ok, err := r.retain(id); ok || err != nil {
		return sc, err
	}

	conn, err := r.connector.Open(ctx)
	if err != nil {
		r.logger.Info("engine connection failed", idField(id), zap.Error(err))
		return nil, errors.ConnectionFailed(errors.PhaseRegistry, "open engine connection", err)
	}
	sc := newSharedConn(id, conn)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.Close()
		return nil, errors.ConnectionFailed(errors.PhaseRegistry, "registry closed", nil)
	}
	sc.handle = r.table.Insert(resource.TypeConnection, sc)
	r.handles[id] = sc.handle
	r.mu.Unlock()

	r.logger.Info("engine connection opened", idField(id))
	return sc, nil
}

// Release drops one reference to the connection for id and closes it when
// none remain.
func (r *Registry) Release(id float64) error {
	r.mu.Lock()
	h, ok := r.handles[id]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound(errors.PhaseRegistry, "session", strconv.FormatFloat(id, 'g', -1, 64))
	}
	v, _ := r.table.Get(h)
	if r.table.Refs(h) > 1 {
		r.table.Release(h)
		r.mu.Unlock()
		return nil
	}
	// Last reference: unregister now, drop outside the lock since closing
	// waits for a running call.
	delete(r.handles, id)
	r.releasing.Add(1)
	r.mu.Unlock()
	defer r.releasing.Done()

	sc := v.(*SharedConn)
	r.table.Release(h)
	return r.reportClose(sc)
}

// reportClose logs the outcome of a connection dropped by the table.
func (r *Registry) reportClose(sc *SharedConn) error {
	if sc.dropErr != nil {
		r.logger.Warn("engine connection close failed", idField(sc.id), zap.Error(sc.dropErr))
		return sc.dropErr
	}
	r.logger.Info("engine connection closed", idField(sc.id))
	return nil
}

// RefCount returns the number of sessions holding the connection for id.
func (r *Registry) RefCount(id float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return 0
	}
	return r.table.Refs(h)
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close closes every remaining connection regardless of references.
// Further acquires fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handles := make([]resource.Handle, 0, len(r.handles))
	for id, h := range r.handles {
		handles = append(handles, h)
		delete(r.handles, id)
	}
	r.mu.Unlock()

	var errs error
	for _, h := range handles {
		if v, ok := r.table.Remove(h); ok {
			errs = multierr.Append(errs, r.reportClose(v.(*SharedConn)))
		}
	}
	r.releasing.Wait()
	return multierr.Append(errs, r.table.Close())
}
