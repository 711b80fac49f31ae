// Package errors provides structured error types for the mxbridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: element path, Go type and engine class
// names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindUnsupportedValue).
//		Path("opts", "callback").
//		GoType("func()").
//		Detail("functions cannot be sent to the engine").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedType(errors.PhaseDecode, path, "function_handle")
//	err := errors.NotFound(errors.PhaseSession, "variable", "x")
//
// The Kind values map onto the bridge's error taxonomy:
//
//	KindConnection       engine unreachable or session not open
//	KindEvaluation       evaluate failed (not open, engine signaled failure)
//	KindNotFound         variable (or registry entry) does not exist
//	KindUnsupportedType  engine class outside the convertible set
//	KindUnsupportedValue Go value outside the convertible set
//	KindBusy             mutation while aliased, close while a call is in flight
//
// All errors implement the standard error interface and support errors.Is/As.
// Use IsKind to match on Kind regardless of Phase.
package errors
