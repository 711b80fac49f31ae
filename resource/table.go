package resource

import (
	"sync"
)

// UnifiedTable implements Table on top of a LocalBackend.
type UnifiedTable struct {
	backend   *LocalBackend
	observers map[uint64]Observer
	nextObs   uint64
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

var _ Table = (*UnifiedTable)(nil)

// NewTable creates a new unified table with a LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend:   NewLocalBackend(),
		observers: make(map[uint64]Observer),
	}
}

// Insert adds a value with one reference and returns its handle, or 0 once
// the table is closed.
func (t *UnifiedTable) Insert(typeID uint32, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
		Refs:   1,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *UnifiedTable) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Retain adds a reference to a live resource.
func (t *UnifiedTable) Retain(handle Handle) bool {
	typeID, _ := t.backend.TypeID(handle)
	refs, ok := t.backend.Retain(handle)
	if !ok {
		return false
	}
	t.notify(Event{
		Type:   EventRetained,
		Handle: handle,
		TypeID: typeID,
		Refs:   refs,
	})
	return true
}

// Release drops a reference. When the last one goes away the value's Drop
// method runs (if it has one) and observers see EventDropped.
func (t *UnifiedTable) Release(handle Handle) (int, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, refs, ok := t.backend.Release(handle)
	if !ok {
		return 0, false
	}

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		TypeID: typeID,
		Refs:   refs,
	})
	if refs == 0 {
		t.dropped(handle, typeID, value)
	}
	return refs, true
}

// Refs returns the current reference count of handle.
func (t *UnifiedTable) Refs(handle Handle) int {
	return t.backend.Refs(handle)
}

// Remove drops a resource regardless of references and returns its value.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}
	t.dropped(handle, typeID, value)
	return value, true
}

func (t *UnifiedTable) dropped(handle Handle, typeID uint32, value any) {
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *UnifiedTable) Subscribe(o Observer) func() {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = o
	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		delete(t.observers, id)
	}
}

// Len returns the number of active resources.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Close releases all resources and stops accepting inserts.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
