package resource

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Type IDs of the resources the bridge shares.
const (
	TypeSharedBuffer uint32 = iota + 1 // numeric storage aliased by host views
	TypeConnection                     // engine connection shared by sessions
)

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a resource lifecycle event. Refs is the reference count
// after the operation.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Refs   int
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value with one reference and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Retain adds a reference and returns the new count.
	Retain(handle Handle) (int, bool)

	// Release drops a reference. The value is returned with remaining 0
	// when the last reference went away and the entry was freed.
	Release(handle Handle) (value any, remaining int, ok bool)

	// Drop removes a resource regardless of its reference count.
	Drop(handle Handle) (any, bool)

	// Close releases all resources held by the backend.
	Close() error
}

// Table manages refcounted resources with type information and observer support.
type Table interface {
	Insert(typeID uint32, value any) Handle
	Get(handle Handle) (any, bool)
	GetTyped(handle Handle, typeID uint32) (any, bool)
	Retain(handle Handle) bool
	Release(handle Handle) (remaining int, ok bool)
	Refs(handle Handle) int
	Remove(handle Handle) (any, bool)
	Subscribe(Observer) (cancel func())
	Len() int
	Close() error
}

// Dropper is optionally implemented by resource values that need cleanup
// when their last reference goes away. Engine connections close this way.
type Dropper interface {
	Drop()
}
