// Package resource provides refcounted handle tables for values the bridge
// shares between independent owners.
//
// Two kinds of resources live in tables:
//
//	TypeSharedBuffer - numeric storage aliased by one or more host views
//	TypeConnection   - an engine connection multiplexed by several sessions
//
// # Reference Counting
//
// Insert stores a value with one reference. Retain adds a reference and
// Release removes one; the entry is freed exactly when the count reaches zero:
//
//	table := resource.NewTable()
//
//	h := table.Insert(resource.TypeSharedBuffer, buf) // refs=1
//	table.Retain(h)                                   // refs=2
//	table.Release(h)                                  // refs=1
//	table.Release(h)                                  // refs=0, dropped
//
// Remove frees an entry regardless of its count. Values implementing Dropper
// have Drop called when they leave the table.
//
// # Type Safety
//
// GetTyped only returns values inserted under the expected type ID:
//
//	v, ok := table.GetTyped(h, resource.TypeConnection) // !ok for a buffer
//
// # Observers
//
// Observers see every lifecycle transition, including the reference count
// after it:
//
//	cancel := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("resource %d %s refs=%d", e.Handle, e.Type, e.Refs)
//	}))
//	defer cancel()
//
// Observers run synchronously on the calling goroutine and must not
// subscribe or cancel from inside the callback.
//
// Handles are recycled through a free list, so a handle must not be used
// after the release that dropped it.
package resource
