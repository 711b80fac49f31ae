package transcoder

import (
	"strconv"
	"unicode/utf16"

	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

// DefaultMaxDepth bounds struct and cell nesting for both directions.
const DefaultMaxDepth = 64

// Decoder converts arrays into host values.
type Decoder struct {
	cache    *BufferCache
	maxDepth int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithBufferCache makes the decoder return aliased *View values for numeric
// buffers instead of copies.
func WithBufferCache(c *BufferCache) DecoderOption {
	return func(d *Decoder) { d.cache = c }
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// decodeState tracks views created during one Decode call so a failure can
// release them.
type decodeState struct {
	views []*View
}

// Decode converts a into a host value. The array stays owned by the caller.
// On error no views created by this call remain live.
func (d *Decoder) Decode(a *mxarray.Array) (any, error) {
	st := &decodeState{}
	v, err := d.decode(st, a, nil, 0)
	if err != nil {
		for _, view := range st.views {
			view.Release()
		}
		return nil, err
	}
	return v, nil
}

func (d *Decoder) decode(st *decodeState, a *mxarray.Array, path []string, depth int) (any, error) {
	if a == nil {
		return nil, nil
	}
	if a.Destroyed() {
		return nil, errors.New(errors.PhaseDecode, errors.KindDestroyed).
			Path(path...).
			Detail("array has been destroyed").
			Build()
	}
	if depth > d.maxDepth {
		return nil, errors.DepthExceeded(errors.PhaseDecode, path, d.maxDepth)
	}

	class := a.Class()
	if !class.IsSupported() {
		return nil, errors.UnsupportedType(errors.PhaseDecode, path, a.ClassName())
	}
	if a.IsEmpty() {
		return nil, nil
	}

	switch class {
	case mxarray.ClassLogical:
		l := a.Logicals()
		if a.IsScalar() {
			return l[0], nil
		}
		return append([]bool(nil), l...), nil

	case mxarray.ClassChar:
		return decodeChars(a), nil

	case mxarray.ClassStruct:
		return d.decodeStruct(st, a, path, depth)

	case mxarray.ClassCell:
		return d.decodeCell(st, a, path, depth)
	}

	if a.IsComplex() {
		re, err := d.buffer(st, a.Real(), path, "re")
		if err != nil {
			return nil, err
		}
		im, err := d.buffer(st, a.Imag(), path, "im")
		if err != nil {
			return nil, err
		}
		return NewObject().Set("re", re).Set("im", im), nil
	}
	if a.IsDouble() && a.IsScalar() {
		return a.Scalar(), nil
	}
	return d.buffer(st, a.Real(), path, "")
}

// buffer returns an aliased view when a cache is configured, else a copy.
func (d *Decoder) buffer(st *decodeState, data any, path []string, part string) (any, error) {
	if d.cache == nil {
		return copyBuffer(data), nil
	}
	v, err := d.cache.View(data)
	if err != nil {
		if part != "" {
			path = appendPath(path, part)
		}
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(path...).
			Cause(err).
			Detail("cannot alias buffer").
			Build()
	}
	st.views = append(st.views, v)
	return v, nil
}

// decodeChars returns a string for a row vector and one string per row
// otherwise.
func decodeChars(a *mxarray.Array) any {
	units := a.Chars()
	dims := a.Dims()
	rows := dims[0]
	if rows <= 1 || len(dims) > 2 {
		return string(utf16.Decode(units))
	}
	cols := len(units) / rows
	out := make([]any, rows)
	row := make([]uint16, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			row[c] = units[r+c*rows]
		}
		out[r] = string(utf16.Decode(row))
	}
	return out
}

func (d *Decoder) decodeStruct(st *decodeState, a *mxarray.Array, path []string, depth int) (any, error) {
	n := a.NumElements()
	if n == 1 {
		return d.decodeStructElement(st, a, 0, path, depth)
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		obj, err := d.decodeStructElement(st, a, i, appendPath(path, "("+strconv.Itoa(i+1)+")"), depth)
		if err != nil {
			return nil, err
		}
		out[i] = obj
	}
	return out, nil
}

func (d *Decoder) decodeStructElement(st *decodeState, a *mxarray.Array, i int, path []string, depth int) (*Object, error) {
	obj := NewObject()
	for f, name := range a.FieldNames() {
		child, err := a.FieldByNumber(i, f)
		if err != nil {
			return nil, err
		}
		v, err := d.decode(st, child, appendPath(path, name), depth+1)
		if err != nil {
			return nil, err
		}
		obj.Set(name, v)
	}
	return obj, nil
}

func (d *Decoder) decodeCell(st *decodeState, a *mxarray.Array, path []string, depth int) (any, error) {
	n := a.NumElements()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		child, err := a.Cell(i)
		if err != nil {
			return nil, err
		}
		v, err := d.decode(st, child, appendPath(path, "{"+strconv.Itoa(i+1)+"}"), depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func copyBuffer(data any) any {
	switch s := data.(type) {
	case []float64:
		return append([]float64(nil), s...)
	case []float32:
		return append([]float32(nil), s...)
	case []int8:
		return append([]int8(nil), s...)
	case []uint8:
		return append([]uint8(nil), s...)
	case []int16:
		return append([]int16(nil), s...)
	case []uint16:
		return append([]uint16(nil), s...)
	case []int32:
		return append([]int32(nil), s...)
	case []uint32:
		return append([]uint32(nil), s...)
	case []int64:
		return append([]int64(nil), s...)
	case []uint64:
		return append([]uint64(nil), s...)
	}
	return nil
}

// appendPath extends path without sharing its backing array.
func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}
