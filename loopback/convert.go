package loopback

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf16"

	"github.com/zclconf/go-cty/cty"

	"github.com/wippyai/mxbridge/mxarray"
)

// toCty converts a workspace array into an evaluator value. Row vectors
// become flat tuples and other two-dimensional arrays tuples of rows.
func toCty(a *mxarray.Array) (cty.Value, error) {
	if a == nil || a.IsEmpty() {
		return cty.EmptyTupleVal, nil
	}
	if a.IsComplex() {
		return cty.NilVal, fmt.Errorf("complex values are not supported")
	}
	dims := a.Dims()
	if len(dims) > 2 {
		return cty.NilVal, fmt.Errorf("%d-D arrays are not supported", len(dims))
	}

	switch a.Class() {
	case mxarray.ClassChar:
		return charsToCty(a), nil
	case mxarray.ClassStruct:
		if a.IsScalar() {
			return structElement(a, 0)
		}
		return shaped(a, func(i int) (cty.Value, error) { return structElement(a, i) })
	case mxarray.ClassDouble, mxarray.ClassLogical, mxarray.ClassCell:
		if a.IsScalar() {
			return element(a, 0)
		}
		return shaped(a, func(i int) (cty.Value, error) { return element(a, i) })
	}
	return cty.NilVal, fmt.Errorf("%s values are not supported", a.ClassName())
}

// shaped lays out elements of a 2-D array as a flat tuple for a single row
// or a tuple of row tuples otherwise.
func shaped(a *mxarray.Array, at func(int) (cty.Value, error)) (cty.Value, error) {
	dims := a.Dims()
	rows, cols := dims[0], dims[1]
	if rows == 1 {
		vals := make([]cty.Value, a.NumElements())
		for i := range vals {
			v, err := at(i)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = v
		}
		return cty.TupleVal(vals), nil
	}

	out := make([]cty.Value, rows)
	for r := 0; r < rows; r++ {
		row := make([]cty.Value, cols)
		for c := 0; c < cols; c++ {
			v, err := at(r + c*rows)
			if err != nil {
				return cty.NilVal, err
			}
			row[c] = v
		}
		out[r] = cty.TupleVal(row)
	}
	return cty.TupleVal(out), nil
}

// element returns the i-th element (column-major) of a double, logical,
// char or cell array.
func element(a *mxarray.Array, i int) (cty.Value, error) {
	switch a.Class() {
	case mxarray.ClassDouble:
		return numberVal(a.Real().([]float64)[i])
	case mxarray.ClassLogical:
		return cty.BoolVal(a.Logicals()[i]), nil
	case mxarray.ClassChar:
		return cty.StringVal(string(rune(a.Chars()[i]))), nil
	case mxarray.ClassCell:
		child, err := a.Cell(i)
		if err != nil {
			return cty.NilVal, err
		}
		return toCty(child)
	case mxarray.ClassStruct:
		return structElement(a, i)
	}
	return cty.NilVal, fmt.Errorf("%s values are not supported", a.ClassName())
}

func structElement(a *mxarray.Array, i int) (cty.Value, error) {
	names := a.FieldNames()
	if len(names) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(names))
	for _, name := range names {
		child, err := a.Field(i, name)
		if err != nil {
			return cty.NilVal, err
		}
		v, err := toCty(child)
		if err != nil {
			return cty.NilVal, fmt.Errorf("field %s: %w", name, err)
		}
		attrs[name] = v
	}
	return cty.ObjectVal(attrs), nil
}

func charsToCty(a *mxarray.Array) cty.Value {
	rows := a.Dims()[0]
	if rows == 1 {
		return cty.StringVal(a.String())
	}
	chars := a.Chars()
	cols := len(chars) / rows
	out := make([]cty.Value, rows)
	row := make([]uint16, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			row[c] = chars[r+c*rows]
		}
		out[r] = cty.StringVal(string(utf16.Decode(row)))
	}
	return cty.TupleVal(out)
}

func numberVal(f float64) (cty.Value, error) {
	if math.IsNaN(f) {
		return cty.NilVal, fmt.Errorf("NaN is not supported")
	}
	return cty.NumberFloatVal(f), nil
}

func toFloat(v cty.Value) float64 {
	f, _ := v.AsBigFloat().Float64()
	return f
}

// toArray converts an evaluator value into a new array owned by the caller.
func toArray(v cty.Value) (*mxarray.Array, error) {
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	if v.IsNull() {
		return mxarray.NewDoubleMatrix(0, 0)
	}

	t := v.Type()
	switch {
	case t == cty.Number:
		return mxarray.NewDoubleScalar(toFloat(v)), nil
	case t == cty.String:
		return mxarray.NewString(v.AsString()), nil
	case t == cty.Bool:
		return mxarray.NewLogicalScalar(v.True()), nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		return sequenceToArray(v.AsValueSlice())
	case t.IsObjectType() || t.IsMapType():
		return objectToArray(v.AsValueMap())
	}
	return nil, fmt.Errorf("cannot store a value of type %s", t.FriendlyName())
}

func sequenceToArray(vals []cty.Value) (*mxarray.Array, error) {
	if len(vals) == 0 {
		return mxarray.NewDoubleMatrix(0, 0)
	}
	switch {
	case allOf(vals, cty.Number):
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = toFloat(v)
		}
		return mxarray.FromSlices(out, nil, 1, len(out))
	case allOf(vals, cty.Bool):
		a, err := mxarray.NewLogical(1, len(vals))
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			a.Logicals()[i] = v.True()
		}
		return a, nil
	}
	if m, ok := numericRows(vals); ok {
		rows, cols := len(m), len(m[0])
		out := make([]float64, rows*cols)
		for r, row := range m {
			for c, f := range row {
				out[r+c*rows] = f
			}
		}
		return mxarray.FromSlices(out, nil, rows, cols)
	}

	cell, err := mxarray.NewCell(1, len(vals))
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		child, err := toArray(v)
		if err != nil {
			cell.Destroy()
			return nil, err
		}
		if err := cell.SetCell(i, child); err != nil {
			child.Destroy()
			cell.Destroy()
			return nil, err
		}
	}
	return cell, nil
}

// numericRows reports whether vals is a non-empty list of equally long
// numeric rows.
func numericRows(vals []cty.Value) ([][]float64, bool) {
	out := make([][]float64, len(vals))
	for i, v := range vals {
		t := v.Type()
		if v.IsNull() || !(t.IsTupleType() || t.IsListType()) {
			return nil, false
		}
		row := v.AsValueSlice()
		if len(row) == 0 || !allOf(row, cty.Number) || (i > 0 && len(row) != len(out[0])) {
			return nil, false
		}
		out[i] = make([]float64, len(row))
		for j, e := range row {
			out[i][j] = toFloat(e)
		}
	}
	return out, true
}

func allOf(vals []cty.Value, t cty.Type) bool {
	for _, v := range vals {
		if v.IsNull() || !v.Type().Equals(t) {
			return false
		}
	}
	return true
}

func objectToArray(attrs map[string]cty.Value) (*mxarray.Array, error) {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	s, err := mxarray.NewStruct(names)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		child, err := toArray(attrs[name])
		if err != nil {
			s.Destroy()
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		if err := s.SetField(0, name, child); err != nil {
			child.Destroy()
			s.Destroy()
			return nil, err
		}
	}
	return s, nil
}
