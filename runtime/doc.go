// Package runtime provides the high-level API for talking to an engine with
// Go values.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt := runtime.New(loopback.New())
//	defer rt.Close()
//
//	eng, err := rt.Open(ctx, runtime.Options{ID: 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	out, err := eng.Evaluate(ctx, "x = 3 + 4")
//	fmt.Print(out) // x = ... 7
//
//	_ = eng.PutVariable(ctx, "y", []float64{1, 2, 3})
//	v, _ := eng.GetVariable(ctx, "y") // []float64{1, 2, 3}
//
// # Sharing
//
// Engines opened with the same Options.ID share one connection and one
// workspace. The connection closes when the last of them is closed or when
// the runtime is closed.
//
// # Values
//
// PutVariable encodes Go values with transcoder.Encoder and GetVariable
// decodes copies with transcoder.Decoder. GetArray returns a
// transcoder.Holder whose Value hands out views aliasing the array's
// numeric storage instead of copies.
//
// # Timeouts
//
// Options.Timeout bounds each call whose context has no deadline. A call
// that times out keeps running inside the engine; later calls on the same
// connection wait for it.
//
// # Thread Safety
//
// Runtime and Engine are safe for concurrent use. Calls on one connection
// are serialized.
package runtime
