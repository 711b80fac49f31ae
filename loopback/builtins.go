package loopback

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/wippyai/mxbridge/mxarray"
)

// maxGenerated bounds the size of arrays built by zeros and ones.
const maxGenerated = 1 << 20

// userError is raised by the error built-in; its message is shown as is.
type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

var anyResult = function.StaticReturnType(cty.DynamicPseudoType)

// builtins returns the functions every statement can call. disp writes to
// out.
func builtins(out *output) map[string]function.Function {
	return map[string]function.Function{
		"zeros": fillFunc(0),
		"ones":  fillFunc(1),
		"numel": function.New(&function.Spec{
			Params: []function.Parameter{{Name: "x", Type: cty.DynamicPseudoType, AllowNull: true}},
			Type:   function.StaticReturnType(cty.Number),
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				return cty.NumberIntVal(int64(numel(args[0]))), nil
			},
		}),
		"sum": function.New(&function.Spec{
			Params: []function.Parameter{{Name: "x", Type: cty.DynamicPseudoType}},
			Type:   anyResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				return sum(args[0])
			},
		}),
		"sqrt": elementwise("sqrt", func(f float64) (float64, error) {
			if f < 0 {
				return 0, fmt.Errorf("sqrt of a negative value needs complex support")
			}
			return math.Sqrt(f), nil
		}),
		"abs": elementwise("abs", func(f float64) (float64, error) {
			return math.Abs(f), nil
		}),
		"disp": function.New(&function.Spec{
			Params: []function.Parameter{{Name: "x", Type: cty.DynamicPseudoType, AllowNull: true}},
			Type:   anyResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				a, err := toArray(args[0])
				if err != nil {
					return cty.NilVal, err
				}
				defer a.Destroy()
				if a.IsChar() && a.Dims()[0] == 1 {
					out.WriteString(a.String() + "\n")
				} else {
					out.WriteString(body(a))
				}
				return cty.NullVal(cty.DynamicPseudoType), nil
			},
		}),
		"error": function.New(&function.Spec{
			Params:   []function.Parameter{{Name: "message", Type: cty.String}},
			VarParam: &function.Parameter{Name: "args", Type: cty.DynamicPseudoType},
			Type:     anyResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				return cty.NilVal, userError{msg: sprintf(args[0].AsString(), args[1:])}
			},
		}),
	}
}

// indexFunc makes a workspace variable callable: name(k) and name(r, c)
// read elements with one-based subscripts.
func indexFunc(a *mxarray.Array) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{Name: "subscript", Type: cty.Number},
		Type:     anyResult,
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) == 0 {
				return toCty(a)
			}
			subs := make([]int, len(args))
			for i, arg := range args {
				f := toFloat(arg)
				if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
					return cty.NilVal, fmt.Errorf("index in position %d is invalid; array indices must be positive integers", i+1)
				}
				subs[i] = int(f) - 1
			}
			idx, err := a.Index(subs...)
			if err != nil {
				return cty.NilVal, fmt.Errorf("index exceeds the array bounds (%s)", dimString(a))
			}
			if a.IsComplex() {
				return cty.NilVal, fmt.Errorf("complex values are not supported")
			}
			return element(a, idx)
		},
	})
}

func fillFunc(value float64) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{Name: "dims", Type: cty.Number},
		Type:     anyResult,
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			rows, cols := 1, 1
			switch len(args) {
			case 0:
			case 1:
				rows = toSize(args[0])
				cols = rows
			case 2:
				rows, cols = toSize(args[0]), toSize(args[1])
			default:
				return cty.NilVal, fmt.Errorf("only two-dimensional sizes are supported")
			}
			if rows < 0 || cols < 0 {
				return cty.NilVal, fmt.Errorf("size inputs must be non-negative integers")
			}
			if rows*cols > maxGenerated {
				return cty.NilVal, fmt.Errorf("requested %dx%d array exceeds the maximum size", rows, cols)
			}
			if rows == 0 || cols == 0 {
				return cty.EmptyTupleVal, nil
			}
			v := cty.NumberFloatVal(value)
			row := make([]cty.Value, cols)
			for i := range row {
				row[i] = v
			}
			if rows == 1 {
				return cty.TupleVal(row), nil
			}
			out := make([]cty.Value, rows)
			for i := range out {
				out[i] = cty.TupleVal(row)
			}
			return cty.TupleVal(out), nil
		},
	})
}

func toSize(v cty.Value) int {
	f := toFloat(v)
	if f != math.Trunc(f) || f > maxGenerated {
		return -1
	}
	return int(f)
}

func elementwise(name string, fn func(float64) (float64, error)) function.Function {
	var apply func(v cty.Value) (cty.Value, error)
	apply = func(v cty.Value) (cty.Value, error) {
		t := v.Type()
		switch {
		case t == cty.Number:
			f, err := fn(toFloat(v))
			if err != nil {
				return cty.NilVal, err
			}
			return numberVal(f)
		case t.IsTupleType() || t.IsListType():
			vals := v.AsValueSlice()
			if len(vals) == 0 {
				return cty.EmptyTupleVal, nil
			}
			out := make([]cty.Value, len(vals))
			for i, e := range vals {
				r, err := apply(e)
				if err != nil {
					return cty.NilVal, err
				}
				out[i] = r
			}
			return cty.TupleVal(out), nil
		}
		return cty.NilVal, fmt.Errorf("%s expects numeric input, got %s", name, t.FriendlyName())
	}
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "x", Type: cty.DynamicPseudoType}},
		Type:   anyResult,
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return apply(args[0])
		},
	})
}

func numel(v cty.Value) int {
	if v.IsNull() {
		return 0
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return len(utf16.Encode([]rune(v.AsString())))
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		vals := v.AsValueSlice()
		if m, ok := numericRows(vals); ok {
			return len(m) * len(m[0])
		}
		return len(vals)
	}
	return 1
}

// sum adds the elements of a vector, or each column of a matrix.
func sum(v cty.Value) (cty.Value, error) {
	t := v.Type()
	if t == cty.Number {
		return v, nil
	}
	if !(t.IsTupleType() || t.IsListType()) {
		return cty.NilVal, fmt.Errorf("sum expects numeric input, got %s", t.FriendlyName())
	}
	vals := v.AsValueSlice()
	if len(vals) == 0 {
		return cty.NumberIntVal(0), nil
	}
	if allOf(vals, cty.Number) {
		total := 0.0
		for _, e := range vals {
			total += toFloat(e)
		}
		return numberVal(total)
	}
	m, ok := numericRows(vals)
	if !ok {
		return cty.NilVal, fmt.Errorf("sum expects a numeric vector or matrix")
	}
	cols := make([]float64, len(m[0]))
	for _, row := range m {
		for c, f := range row {
			cols[c] += f
		}
	}
	if len(cols) == 1 {
		return numberVal(cols[0])
	}
	out := make([]cty.Value, len(cols))
	for i, f := range cols {
		r, err := numberVal(f)
		if err != nil {
			return cty.NilVal, err
		}
		out[i] = r
	}
	return cty.TupleVal(out), nil
}

// sprintf formats an error message; integral numbers satisfy %d.
func sprintf(format string, args []cty.Value) string {
	if len(args) == 0 {
		return format
	}
	vals := make([]any, len(args))
	for i, a := range args {
		switch {
		case a.IsNull():
			vals[i] = "[]"
		case a.Type() == cty.Number:
			f := toFloat(a)
			if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
				vals[i] = int64(f)
			} else {
				vals[i] = f
			}
		case a.Type() == cty.String:
			vals[i] = a.AsString()
		case a.Type() == cty.Bool:
			vals[i] = a.True()
		default:
			vals[i] = a.GoString()
		}
	}
	return strings.TrimSpace(fmt.Sprintf(format, vals...))
}
