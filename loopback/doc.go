// Package loopback is an in-process engine used by tests and the mxeng
// command.
//
// Statements are HCL native syntax expressions evaluated with go-cty:
//
//	x = 3 + 4
//	y = [1, 2, 3];
//	s = {name = "ada", age = 36}
//	z = y(2) * sqrt(16)
//
// A bare expression is stored in ans. A trailing semicolon suppresses the
// echo. Workspace variables can be called with one-based subscripts to read
// elements. Built-ins are zeros, ones, numel, sum, sqrt, abs, disp and
// error.
//
// Numeric tuples become 1xN double rows, tuples of equally long numeric
// tuples become matrices and other tuples become cells. Objects become
// scalar structs with sorted fields.
//
// Evaluation errors are written to the output as "Error: ..." and do not
// fail the Eval call.
package loopback
