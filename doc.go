// Package mxbridge connects Go programs to a numeric-computation engine:
// evaluate expressions, exchange named variables, and share engine
// connections between sessions.
//
// # Architecture Overview
//
//	mxbridge/            Root package with the Conn and Connector interfaces
//	├── runtime/         High-level API: Runtime and Engine handles
//	├── engine/          Sessions, shared connections, session registry
//	├── transcoder/      Array <-> Go value conversion and buffer aliasing
//	├── mxarray/         The engine's dynamically typed N-d array
//	├── resource/        Refcounted handle tables
//	├── loopback/        In-process engine for tests and the CLI
//	├── config/          YAML configuration and logger construction
//	├── errors/          Structured error types
//	├── cmd/mxeng/       CLI with one-shot, line and interactive modes
//	└── examples/basic/  Runnable walkthrough
//
// # Quick Start
//
//	rt := runtime.New(loopback.New())
//	defer rt.Close()
//
//	eng, err := rt.Open(ctx, runtime.Options{ID: 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	out, _ := eng.Evaluate(ctx, "x = 3 + 4")
//	fmt.Print(out) // x =\n\n     7\n\n
//
//	_ = eng.PutVariable(ctx, "y", []float64{1, 2, 3})
//	v, _ := eng.GetVariable(ctx, "y") // []float64{1, 2, 3}
//
// # Values
//
// Engine arrays map onto Go values as follows (see package transcoder):
//
//   - empty arrays: nil
//   - logical: bool, []bool
//   - char: string
//   - double scalar: float64; other numeric data: typed slices
//   - complex: *transcoder.Object{"re", "im"}
//   - struct: *transcoder.Object (ordered), or []any for struct arrays
//   - cell: []any
//
// Function handles, sparse matrices and objects are rejected with
// errors.KindUnsupportedType.
//
// # Sessions
//
// Sessions with the same ID share one engine connection. The connection is
// opened by the first session and closed when the last one closes. Calls on
// a shared connection are serialized.
//
// # Error Handling
//
// Errors carry phase, kind and path context:
//
//	[decode] unsupported_type at s.items{2}: class function_handle - ...
//	[session] not_found: variable "x" not found
//
// Use errors.IsKind to branch on the error category.
package mxbridge
