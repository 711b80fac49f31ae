package mxarray

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf16"

	"github.com/wippyai/mxbridge/errors"
)

// MaxElements bounds the element count of a single array.
const MaxElements = 1 << 31

var live atomic.Int64

// Live returns the number of arrays created and not yet destroyed.
func Live() int64 {
	return live.Load()
}

// Array is a dynamically typed N-dimensional engine array.
type Array struct {
	real      any
	imag      any
	className string
	dims      []int
	fields    []string
	values    []*Array
	class     Class
	destroyed bool
}

func newArray(class Class, dims []int) *Array {
	live.Add(1)
	return &Array{class: class, dims: dims}
}

// normalizeDims validates dims and returns the canonical form together with
// the element count. No dims means 0x0; a single dim n means n x 1; trailing
// singleton dimensions beyond the second are dropped.
func normalizeDims(dims []int) ([]int, int, error) {
	switch len(dims) {
	case 0:
		return []int{0, 0}, 0, nil
	case 1:
		dims = []int{dims[0], 1}
	default:
		dims = append([]int(nil), dims...)
	}
	for len(dims) > 2 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}

	n := 1
	for i, d := range dims {
		if d < 0 {
			return nil, 0, errors.New(errors.PhaseArray, errors.KindInvalidInput).
				Value(d).
				Detail("dimension %d is negative (%d)", i, d).
				Build()
		}
		if d == 0 {
			n = 0
			continue
		}
		if n != 0 && n > MaxElements/d {
			return nil, 0, errors.Overflow(errors.PhaseArray, nil, formatDims(dims), "element count")
		}
		n *= d
	}
	if n > MaxElements {
		return nil, 0, errors.Overflow(errors.PhaseArray, nil, formatDims(dims), "element count")
	}
	return dims, n, nil
}

func formatDims(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

func (a *Array) check() error {
	if a == nil {
		return errors.InvalidInput(errors.PhaseArray, "nil array")
	}
	if a.destroyed {
		return errors.Destroyed(errors.PhaseArray, "array")
	}
	return nil
}

// Class returns the class tag.
func (a *Array) Class() Class {
	return a.class
}

// ClassName returns the engine class name. Objects report their own class.
func (a *Array) ClassName() string {
	if a.class == ClassObject && a.className != "" {
		return a.className
	}
	return a.class.String()
}

// Dims returns a copy of the dimensions.
func (a *Array) Dims() []int {
	return append([]int(nil), a.dims...)
}

// NumElements returns the product of the dimensions.
func (a *Array) NumElements() int {
	n := 1
	for _, d := range a.dims {
		n *= d
	}
	return n
}

func (a *Array) IsEmpty() bool   { return a.NumElements() == 0 }
func (a *Array) IsScalar() bool  { return a.NumElements() == 1 }
func (a *Array) IsComplex() bool { return a.imag != nil }
func (a *Array) IsNumeric() bool { return a.class.IsNumeric() }
func (a *Array) IsDouble() bool  { return a.class == ClassDouble }
func (a *Array) IsChar() bool    { return a.class == ClassChar }
func (a *Array) IsLogical() bool { return a.class == ClassLogical }
func (a *Array) IsStruct() bool  { return a.class == ClassStruct }
func (a *Array) IsCell() bool    { return a.class == ClassCell }

// Destroyed reports whether Destroy has been called.
func (a *Array) Destroyed() bool {
	return a.destroyed
}

// Scalar returns the first real element as float64, or 0 when the array is
// empty or has no flat storage.
func (a *Array) Scalar() float64 {
	if a.destroyed || dataLen(a.real) == 0 {
		return 0
	}
	return elementFloat(a.real, 0)
}

// Real returns the real (or only) storage slice, aliased.
func (a *Array) Real() any {
	if a.destroyed {
		return nil
	}
	return a.real
}

// Imag returns the imaginary storage slice, or nil for real arrays.
func (a *Array) Imag() any {
	if a.destroyed {
		return nil
	}
	return a.imag
}

// Logicals returns the storage of a logical array.
func (a *Array) Logicals() []bool {
	b, _ := a.Real().([]bool)
	return b
}

// Chars returns the UTF-16 code units of a char array.
func (a *Array) Chars() []uint16 {
	if a.class != ClassChar {
		return nil
	}
	c, _ := a.Real().([]uint16)
	return c
}

// String returns the text of a char array. Other classes render a short
// description such as "<double 2x3>".
func (a *Array) String() string {
	if a == nil {
		return "<nil>"
	}
	if a.class == ClassChar && !a.destroyed {
		return string(utf16.Decode(a.Chars()))
	}
	if a.destroyed {
		return "<destroyed>"
	}
	return fmt.Sprintf("<%s %s>", a.ClassName(), formatDims(a.dims))
}

// Index converts zero-based subscripts into a linear, column-major index.
// Fewer subscripts than dimensions fold the trailing dimensions together.
func (a *Array) Index(subs ...int) (int, error) {
	if len(subs) == 0 {
		return 0, errors.InvalidInput(errors.PhaseArray, "no subscripts")
	}
	dims := a.dims
	if len(subs) < len(dims) {
		folded := append([]int(nil), dims[:len(subs)-1]...)
		rest := 1
		for _, d := range dims[len(subs)-1:] {
			rest *= d
		}
		dims = append(folded, rest)
	}
	idx, stride := 0, 1
	for i, s := range subs {
		d := 1
		if i < len(dims) {
			d = dims[i]
		}
		if s < 0 || s >= d {
			return 0, errors.OutOfBounds(errors.PhaseArray, nil, s, d)
		}
		idx += s * stride
		stride *= d
	}
	return idx, nil
}

// NumFields returns the number of struct fields.
func (a *Array) NumFields() int {
	return len(a.fields)
}

// FieldNames returns the struct field names in insertion order.
func (a *Array) FieldNames() []string {
	return append([]string(nil), a.fields...)
}

// FieldName returns the name of field n.
func (a *Array) FieldName(n int) (string, error) {
	if err := a.check(); err != nil {
		return "", err
	}
	if n < 0 || n >= len(a.fields) {
		return "", errors.OutOfBounds(errors.PhaseArray, nil, n, len(a.fields))
	}
	return a.fields[n], nil
}

// FieldNumber returns the position of the named field, or -1.
func (a *Array) FieldNumber(name string) int {
	for i, f := range a.fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Field returns the value of field name at element i. The result is borrowed
// from a and is nil when the field was never set.
func (a *Array) Field(i int, name string) (*Array, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	n := a.FieldNumber(name)
	if n < 0 {
		return nil, errors.NotFound(errors.PhaseArray, "field", name)
	}
	return a.FieldByNumber(i, n)
}

// FieldByNumber returns the value of field n at element i.
func (a *Array) FieldByNumber(i, n int) (*Array, error) {
	slot, err := a.fieldSlot(i, n)
	if err != nil {
		return nil, err
	}
	return a.values[slot], nil
}

func (a *Array) fieldSlot(i, n int) (int, error) {
	if err := a.check(); err != nil {
		return 0, err
	}
	if a.class != ClassStruct {
		return 0, errors.TypeMismatch(errors.PhaseArray, nil, "struct field", a.ClassName())
	}
	if n < 0 || n >= len(a.fields) {
		return 0, errors.OutOfBounds(errors.PhaseArray, nil, n, len(a.fields))
	}
	numel := a.NumElements()
	if i < 0 || i >= numel {
		return 0, errors.OutOfBounds(errors.PhaseArray, nil, i, numel)
	}
	return i*len(a.fields) + n, nil
}

// SetField stores v as field name of element i, taking ownership of v and
// destroying the previous value.
func (a *Array) SetField(i int, name string, v *Array) error {
	if err := a.check(); err != nil {
		return err
	}
	n := a.FieldNumber(name)
	if n < 0 {
		return errors.NotFound(errors.PhaseArray, "field", name)
	}
	return a.SetFieldByNumber(i, n, v)
}

// SetFieldByNumber is SetField addressed by field position.
func (a *Array) SetFieldByNumber(i, n int, v *Array) error {
	slot, err := a.fieldSlot(i, n)
	if err != nil {
		return err
	}
	return a.replace(slot, v)
}

// AddField appends a field and returns its position. Existing fields keep
// their values; the new field is unset in every element.
func (a *Array) AddField(name string) (int, error) {
	if err := a.check(); err != nil {
		return 0, err
	}
	if a.class != ClassStruct {
		return 0, errors.TypeMismatch(errors.PhaseArray, nil, "struct field", a.ClassName())
	}
	if name == "" {
		return 0, errors.InvalidInput(errors.PhaseArray, "empty field name")
	}
	if n := a.FieldNumber(name); n >= 0 {
		return n, nil
	}
	numel := a.NumElements()
	nf := len(a.fields)
	values := make([]*Array, numel*(nf+1))
	for i := 0; i < numel; i++ {
		copy(values[i*(nf+1):], a.values[i*nf:(i+1)*nf])
	}
	a.fields = append(a.fields, name)
	a.values = values
	return nf, nil
}

// Cell returns element i of a cell array, borrowed from a.
func (a *Array) Cell(i int) (*Array, error) {
	if err := a.checkCell(i); err != nil {
		return nil, err
	}
	return a.values[i], nil
}

// SetCell stores v as element i, taking ownership of v and destroying the
// previous element.
func (a *Array) SetCell(i int, v *Array) error {
	if err := a.checkCell(i); err != nil {
		return err
	}
	return a.replace(i, v)
}

func (a *Array) checkCell(i int) error {
	if err := a.check(); err != nil {
		return err
	}
	if a.class != ClassCell {
		return errors.TypeMismatch(errors.PhaseArray, nil, "cell element", a.ClassName())
	}
	if i < 0 || i >= len(a.values) {
		return errors.OutOfBounds(errors.PhaseArray, nil, i, len(a.values))
	}
	return nil
}

func (a *Array) replace(slot int, v *Array) error {
	if v == a {
		return errors.InvalidInput(errors.PhaseArray, "array cannot contain itself")
	}
	if v != nil && v.destroyed {
		return errors.Destroyed(errors.PhaseArray, "child array")
	}
	if prev := a.values[slot]; prev != nil && prev != v {
		prev.Destroy()
	}
	a.values[slot] = v
	return nil
}

// SetData replaces the flat storage of a numeric, logical, or char array.
// real must have the class's element type and exactly NumElements entries;
// imag is nil for real data.
func (a *Array) SetData(real, imag any) error {
	if err := a.check(); err != nil {
		return err
	}
	if !a.class.IsNumeric() && a.class != ClassLogical && a.class != ClassChar {
		return errors.TypeMismatch(errors.PhaseArray, nil, fmt.Sprintf("%T", real), a.ClassName())
	}
	want := a.NumElements()
	if err := a.checkData(real, want); err != nil {
		return err
	}
	if imag != nil {
		if !a.class.IsNumeric() {
			return errors.TypeMismatch(errors.PhaseArray, []string{"imag"}, fmt.Sprintf("%T", imag), a.ClassName())
		}
		if err := a.checkData(imag, want); err != nil {
			return err
		}
	}
	a.real, a.imag = real, imag
	return nil
}

func (a *Array) checkData(data any, want int) error {
	zero := makeData(a.class, 0)
	if fmt.Sprintf("%T", zero) != fmt.Sprintf("%T", data) {
		return errors.TypeMismatch(errors.PhaseArray, nil, fmt.Sprintf("%T", data), a.ClassName())
	}
	if got := dataLen(data); got != want {
		return errors.New(errors.PhaseArray, errors.KindInvalidInput).
			Class(a.ClassName()).
			Detail("data has %d elements, array has %d", got, want).
			Build()
	}
	return nil
}

// Destroy releases the array and every child it owns. It is idempotent.
func (a *Array) Destroy() {
	if a == nil || a.destroyed {
		return
	}
	a.destroyed = true
	live.Add(-1)
	for _, v := range a.values {
		v.Destroy()
	}
	a.real, a.imag, a.values = nil, nil, nil
}
