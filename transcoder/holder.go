package transcoder

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

// Holder owns one array and the buffer cache of the views handed out for
// it. Mutators are rejected while any view is live, and the array is
// destroyed only once the holder is closed and the last view is gone.
type Holder struct {
	array     *mxarray.Array
	cache     *BufferCache
	dec       *Decoder
	enc       *Encoder
	destroy   sync.Once
	mu        sync.Mutex
	closing   atomic.Bool
	destroyed atomic.Bool
}

// NewHolder takes ownership of a. opts tune the decoder used by Value; the
// holder always supplies its own buffer cache.
func NewHolder(a *mxarray.Array, opts ...DecoderOption) *Holder {
	h := &Holder{
		array: a,
		cache: NewBufferCache(),
		enc:   NewEncoder(),
	}
	opts = append(opts[:len(opts):len(opts)], WithBufferCache(h.cache))
	h.dec = NewDecoder(opts...)
	h.cache.setOnEmpty(h.drained)
	return h
}

// Array returns the held array, borrowed. It is nil after Close.
func (h *Holder) Array() *mxarray.Array {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing.Load() {
		return nil
	}
	return h.array
}

// Value decodes the held array. Numeric buffers come back as *View values
// aliasing the array's storage.
func (h *Holder) Value() (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	return h.dec.Decode(h.array)
}

// Set replaces the held array with a, taking ownership of it.
func (h *Holder) Set(a *mxarray.Array) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkMutable(); err != nil {
		return err
	}
	if a == h.array {
		return errors.InvalidInput(errors.PhaseArray, "holder already owns this array")
	}
	h.array.Destroy()
	h.array = a
	return nil
}

// SetValue encodes v and replaces the held array with the result.
func (h *Holder) SetValue(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkMutable(); err != nil {
		return err
	}
	a, err := h.enc.Encode(v)
	if err != nil {
		return err
	}
	h.array.Destroy()
	h.array = a
	return nil
}

// SetData replaces the flat storage of the held array in place.
func (h *Holder) SetData(real, imag any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkMutable(); err != nil {
		return err
	}
	return h.array.SetData(real, imag)
}

// LiveViews returns the number of views not yet released.
func (h *Holder) LiveViews() int {
	return h.cache.Views()
}

// Cache exposes the holder's buffer cache for observation.
func (h *Holder) Cache() *BufferCache {
	return h.cache
}

// Close gives up the holder. The array is destroyed now if no view is live,
// otherwise when the last view is released. Close is idempotent.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closing.Store(true)
	if h.cache.Views() == 0 {
		h.destroy.Do(h.destroyArray)
	}
}

// Destroyed reports whether the held array has been destroyed.
func (h *Holder) Destroyed() bool {
	return h.destroyed.Load()
}

func (h *Holder) drained() {
	if h.closing.Load() {
		h.destroy.Do(h.destroyArray)
	}
}

func (h *Holder) destroyArray() {
	h.array.Destroy()
	h.destroyed.Store(true)
}

func (h *Holder) checkOpen() error {
	if h.closing.Load() {
		return errors.Destroyed(errors.PhaseDecode, "holder")
	}
	return nil
}

func (h *Holder) checkMutable() error {
	if h.closing.Load() {
		return errors.Destroyed(errors.PhaseEncode, "holder")
	}
	if n := h.cache.Views(); n > 0 {
		return errors.New(errors.PhaseEncode, errors.KindBusy).
			Value(n).
			Detail("%d live views alias the array", n).
			Build()
	}
	return nil
}
