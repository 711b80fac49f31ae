package transcoder

import (
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
	"github.com/wippyai/mxbridge/resource"
)

// View is a host typed buffer aliasing numeric storage of an array.
// Writes through Data are visible to the array and to every other view of
// the same storage.
type View struct {
	data     any
	cache    *BufferCache
	cleanup  runtime.Cleanup
	handle   resource.Handle
	class    mxarray.Class
	released atomic.Bool
}

// Data returns the aliased typed slice, or nil once the view is released.
func (v *View) Data() any {
	if v.released.Load() {
		return nil
	}
	return v.data
}

// Class returns the element class of the view.
func (v *View) Class() mxarray.Class {
	return v.class
}

// Len returns the number of elements.
func (v *View) Len() int {
	return reflect.ValueOf(v.data).Len()
}

// Released reports whether Release has run.
func (v *View) Released() bool {
	return v.released.Load()
}

// Release gives up the view. It is idempotent; a view that is never
// released explicitly is released when it becomes unreachable.
func (v *View) Release() {
	if !v.released.CompareAndSwap(false, true) {
		return
	}
	v.cleanup.Stop()
	v.cache.release(v.handle)
}

// MarshalJSON encodes the viewed elements.
func (v *View) MarshalJSON() ([]byte, error) {
	return jsonMarshal(v.Data())
}

// ViewData returns the view's storage as []T when the class matches.
func ViewData[T mxarray.Element](v *View) ([]T, bool) {
	d, ok := v.Data().([]T)
	return d, ok
}

// sharedBuffer is the table entry behind all views of one address.
type sharedBuffer struct {
	data any
	addr uintptr
}

// BufferCache shares one buffer entry between all views of the same
// storage address. The entry's reference count is its live view count.
type BufferCache struct {
	table   *resource.UnifiedTable
	byAddr  map[uintptr]resource.Handle
	onEmpty func()
	mu      sync.Mutex
	views   int
}

// NewBufferCache creates an empty cache.
func NewBufferCache() *BufferCache {
	return &BufferCache{
		table:  resource.NewTable(),
		byAddr: make(map[uintptr]resource.Handle),
	}
}

// View returns a new view over data, a non-empty typed numeric slice.
func (c *BufferCache) View(data any) (*View, error) {
	class, ok := mxarray.ClassOfSlice(data)
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			GoType(reflect.TypeOf(data).String()).
			Detail("not a numeric buffer").
			Build()
	}
	rv := reflect.ValueOf(data)
	if rv.Len() == 0 {
		return nil, errors.InvalidInput(errors.PhaseDecode, "cannot alias an empty buffer")
	}
	addr := rv.Pointer()

	c.mu.Lock()
	h, found := c.byAddr[addr]
	if found {
		c.table.Retain(h)
	} else {
		h = c.table.Insert(resource.TypeSharedBuffer, &sharedBuffer{addr: addr, data: data})
		c.byAddr[addr] = h
	}
	c.views++
	c.mu.Unlock()

	v := &View{
		data:   data,
		cache:  c,
		handle: h,
		class:  class,
	}
	v.cleanup = runtime.AddCleanup(v, func(r viewRef) {
		r.cache.release(r.handle)
	}, viewRef{cache: c, handle: h})
	return v, nil
}

type viewRef struct {
	cache  *BufferCache
	handle resource.Handle
}

func (c *BufferCache) release(h resource.Handle) {
	c.mu.Lock()
	var addr uintptr
	if v, ok := c.table.GetTyped(h, resource.TypeSharedBuffer); ok {
		addr = v.(*sharedBuffer).addr
	}
	refs, ok := c.table.Release(h)
	if !ok {
		c.mu.Unlock()
		return
	}
	if refs == 0 {
		delete(c.byAddr, addr)
	}
	c.views--
	drained := c.views == 0
	onEmpty := c.onEmpty
	c.mu.Unlock()

	if drained && onEmpty != nil {
		onEmpty()
	}
}

// Views returns the number of live views.
func (c *BufferCache) Views() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.views
}

// Buffers returns the number of distinct shared buffers.
func (c *BufferCache) Buffers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byAddr)
}

// Subscribe reports buffer lifecycle events: EventCreated for the first view
// of an address, EventRetained and EventReleased as views come and go, and
// EventDropped when the last one is released.
func (c *BufferCache) Subscribe(o resource.Observer) func() {
	return c.table.Subscribe(o)
}

func (c *BufferCache) setOnEmpty(fn func()) {
	c.mu.Lock()
	c.onEmpty = fn
	c.mu.Unlock()
}
