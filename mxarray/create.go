package mxarray

import (
	"unicode/utf16"

	"github.com/wippyai/mxbridge/errors"
)

// NewNumeric creates a zero-filled numeric array of the given class.
func NewNumeric(class Class, complex bool, dims ...int) (*Array, error) {
	if !class.IsNumeric() {
		return nil, errors.New(errors.PhaseArray, errors.KindInvalidInput).
			Class(class.String()).
			Detail("not a numeric class").
			Build()
	}
	dims, n, err := normalizeDims(dims)
	if err != nil {
		return nil, err
	}
	a := newArray(class, dims)
	a.real = makeData(class, n)
	if complex {
		a.imag = makeData(class, n)
	}
	return a, nil
}

// NewDoubleScalar creates a 1x1 double.
func NewDoubleScalar(v float64) *Array {
	a := newArray(ClassDouble, []int{1, 1})
	a.real = []float64{v}
	return a
}

// NewComplexScalar creates a 1x1 complex double.
func NewComplexScalar(re, im float64) *Array {
	a := newArray(ClassDouble, []int{1, 1})
	a.real = []float64{re}
	a.imag = []float64{im}
	return a
}

// NewDoubleMatrix creates a zero-filled m x n double matrix.
func NewDoubleMatrix(m, n int) (*Array, error) {
	return NewNumeric(ClassDouble, false, m, n)
}

// NewLogicalScalar creates a 1x1 logical.
func NewLogicalScalar(v bool) *Array {
	a := newArray(ClassLogical, []int{1, 1})
	a.real = []bool{v}
	return a
}

// NewLogical creates an all-false logical array.
func NewLogical(dims ...int) (*Array, error) {
	dims, n, err := normalizeDims(dims)
	if err != nil {
		return nil, err
	}
	a := newArray(ClassLogical, dims)
	a.real = make([]bool, n)
	return a, nil
}

// NewString creates a 1xN char row vector holding s as UTF-16.
func NewString(s string) *Array {
	units := utf16.Encode([]rune(s))
	a := newArray(ClassChar, []int{1, len(units)})
	if len(units) == 0 {
		a.dims = []int{0, 0}
	}
	a.real = units
	return a
}

// NewChars creates a char array from code units laid out column-major.
// Without dims the result is a row vector.
func NewChars(units []uint16, dims ...int) (*Array, error) {
	if len(dims) == 0 {
		dims = []int{1, len(units)}
	}
	dims, n, err := normalizeDims(dims)
	if err != nil {
		return nil, err
	}
	if n != len(units) {
		return nil, errors.New(errors.PhaseArray, errors.KindInvalidInput).
			Class("char").
			Detail("%d code units for %d elements", len(units), n).
			Build()
	}
	a := newArray(ClassChar, dims)
	a.real = append([]uint16(nil), units...)
	return a, nil
}

// NewStruct creates a struct array with the given fields, all unset.
// Field names must be non-empty and unique.
func NewStruct(fieldNames []string, dims ...int) (*Array, error) {
	if len(dims) == 0 {
		dims = []int{1, 1}
	}
	dims, n, err := normalizeDims(dims)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(fieldNames))
	for _, f := range fieldNames {
		if f == "" {
			return nil, errors.InvalidInput(errors.PhaseArray, "empty field name")
		}
		if _, dup := seen[f]; dup {
			return nil, errors.New(errors.PhaseArray, errors.KindInvalidInput).
				Value(f).
				Detail("duplicate field name %q", f).
				Build()
		}
		seen[f] = struct{}{}
	}
	if len(fieldNames) > 0 && n > MaxElements/len(fieldNames) {
		return nil, errors.Overflow(errors.PhaseArray, nil, formatDims(dims), "struct slot count")
	}
	a := newArray(ClassStruct, dims)
	a.fields = append([]string(nil), fieldNames...)
	a.values = make([]*Array, n*len(fieldNames))
	return a, nil
}

// NewCell creates a cell array with every element unset.
func NewCell(dims ...int) (*Array, error) {
	dims, n, err := normalizeDims(dims)
	if err != nil {
		return nil, err
	}
	a := newArray(ClassCell, dims)
	a.values = make([]*Array, n)
	return a, nil
}

// NewFunctionHandle creates a 1x1 function handle. It has no convertible
// storage.
func NewFunctionHandle(name string) *Array {
	a := newArray(ClassFunction, []int{1, 1})
	a.className = name
	return a
}

// NewSparse creates an m x n sparse matrix marker.
func NewSparse(m, n int) (*Array, error) {
	dims, _, err := normalizeDims([]int{m, n})
	if err != nil {
		return nil, err
	}
	return newArray(ClassSparse, dims), nil
}

// NewObject creates a 1x1 instance of a user-defined class.
func NewObject(className string) *Array {
	a := newArray(ClassObject, []int{1, 1})
	a.className = className
	return a
}

// FromSlice creates a column vector holding a copy of values.
func FromSlice[T Element](values []T) *Array {
	a := newArray(ClassOf[T](), []int{len(values), 1})
	a.real = append(make([]T, 0, len(values)), values...)
	return a
}

// FromSlices creates a numeric array of the given shape from copies of re and
// im. im may be nil for real data.
func FromSlices[T Element](re, im []T, dims ...int) (*Array, error) {
	a, err := NewNumeric(ClassOf[T](), im != nil, dims...)
	if err != nil {
		return nil, err
	}
	var imag any
	if im != nil {
		imag = append([]T(nil), im...)
	}
	if err := a.SetData(append(make([]T, 0, len(re)), re...), imag); err != nil {
		a.Destroy()
		return nil, err
	}
	return a, nil
}

// Values returns the real storage of a as []T when the class matches.
func Values[T Element](a *Array) ([]T, bool) {
	v, ok := a.Real().([]T)
	return v, ok
}

// ImagValues returns the imaginary storage of a as []T when a is complex and
// the class matches.
func ImagValues[T Element](a *Array) ([]T, bool) {
	v, ok := a.Imag().([]T)
	return v, ok
}
