// Package mxarray implements the engine's native value representation: a
// dynamically typed N-dimensional array.
//
// An Array carries a closed class tag (Class) plus dimensions and the storage
// that class needs:
//
//	Class          Storage
//	──────────────────────────────────────────────
//	numeric        real []T, optional imag []T (complex)
//	logical        []bool
//	char           []uint16 (UTF-16 code units)
//	struct         field names + one child per element per field
//	cell           one child per element
//	function, sparse, object, unknown
//	               no convertible storage; every conversion rejects them
//
// Elements are stored in column-major (linear) order, as the engine does.
// An array with zero elements is empty regardless of its class.
//
// # Ownership
//
// Every Array has exactly one owner. SetField and SetCell transfer ownership
// of the child to the parent and destroy whatever they replace. Destroy is
// idempotent and recursive; any later access reports errors.KindDestroyed.
// Live reports the number of arrays created and not yet destroyed, which makes
// leaks on error paths observable in tests.
//
// # Bounds
//
// Element counts are computed from dimensions with overflow checks and a hard
// MaxElements limit. Every index accessor bounds-checks and fails with
// errors.KindOutOfBounds rather than returning garbage.
//
// # Thread Safety
//
// Arrays are not safe for concurrent mutation. Live is safe for concurrent use.
package mxarray
