// Package transcoder converts between engine arrays and Go host values.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│ Go value ←→ [Encoder / Decoder] ←→ *mxarray.Array           │
//	└─────────────────────────────────────────────────────────────┘
//
// # Decoding
//
//	Array                          Go value
//	──────────────────────────────────────────────────────────────
//	empty (any class)              nil
//	logical scalar / array         bool / []bool
//	char row / M x N               string / []any of row strings
//	double real scalar             float64
//	other numeric                  []T copy, or *View with a BufferCache
//	complex                        *Object{"re": buf, "im": buf}
//	struct 1x1 / N elements        *Object / []any of *Object
//	cell                           []any in column-major order
//	function, sparse, object       error naming the class
//
// # Encoding
//
//	nil                   0x0 double
//	bool, []bool          logical
//	numbers               double scalar (complex128/64: complex double)
//	string                char row vector (UTF-16)
//	[]T, *View            numeric column vector, always copied
//	[]any, other slices   cell column vector
//	*Object{"re", "im"}   complex column vector when both parts are typed
//	                      buffers of one class and length
//	*Object               scalar struct in key order
//	map[string]T          scalar struct, keys sorted
//	Go struct             scalar struct of exported fields (`mx` tag)
//	error                 returned unchanged
//	func, chan, ...       KindUnsupportedValue
//
// When encoding fails inside a struct or cell, every array built so far is
// destroyed before the error is returned.
//
// # Aliasing
//
// A Holder owns one array and hands out views of its numeric storage:
//
//	h := transcoder.NewHolder(a)
//	v, _ := h.Value()              // *View shares a's buffer
//	err := h.SetValue(other)       // KindBusy while the view is live
//	v.(*transcoder.View).Release() // or let the GC release it
//	h.Close()                      // a is destroyed once views are gone
//
// All views of one buffer address share one BufferCache entry whose
// reference count is the number of live views.
//
// # Thread Safety
//
// Encoder and Decoder are safe for concurrent use. Holder, BufferCache and
// View are safe for concurrent use; Object is not.
//
// # Error Handling
//
// Errors use the structured types from the errors package and carry the
// element path:
//
//	[decode] unsupported_type at s.items{2}: class function_handle - ...
//	[encode] unsupported_value at opts.callback: Go type func() - ...
package transcoder
