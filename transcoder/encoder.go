package transcoder

import (
	"reflect"
	"slices"
	"strconv"

	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

// Encoder converts host values into arrays.
type Encoder struct {
	fields   *fieldCache
	maxDepth int
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithEncodeDepth overrides DefaultMaxDepth for encoding.
func WithEncodeDepth(n int) EncoderOption {
	return func(e *Encoder) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{fields: defaultFields, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode converts v into a new array owned by the caller. An error value is
// returned unchanged. On failure every partially built array is destroyed.
func (e *Encoder) Encode(v any) (*mxarray.Array, error) {
	return e.encode(v, nil, 0)
}

func (e *Encoder) encode(v any, path []string, depth int) (*mxarray.Array, error) {
	if depth > e.maxDepth {
		return nil, errors.DepthExceeded(errors.PhaseEncode, path, e.maxDepth)
	}

	switch v := v.(type) {
	case nil:
		return mxarray.NewDoubleMatrix(0, 0)
	case error:
		return nil, v
	case bool:
		return mxarray.NewLogicalScalar(v), nil
	case float64:
		return mxarray.NewDoubleScalar(v), nil
	case float32:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case int:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case int8:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case int16:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case int32:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case int64:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case uint:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case uint8:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case uint16:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case uint32:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case uint64:
		return mxarray.NewDoubleScalar(float64(v)), nil
	case complex128:
		return mxarray.NewComplexScalar(real(v), imag(v)), nil
	case complex64:
		return mxarray.NewComplexScalar(float64(real(v)), float64(imag(v))), nil
	case string:
		return mxarray.NewString(v), nil
	case []bool:
		a, err := mxarray.NewLogical(len(v), 1)
		if err != nil {
			return nil, err
		}
		copy(a.Logicals(), v)
		return a, nil
	case []float64:
		return mxarray.FromSlice(v), nil
	case []float32:
		return mxarray.FromSlice(v), nil
	case []int8:
		return mxarray.FromSlice(v), nil
	case []uint8:
		return mxarray.FromSlice(v), nil
	case []int16:
		return mxarray.FromSlice(v), nil
	case []uint16:
		return mxarray.FromSlice(v), nil
	case []int32:
		return mxarray.FromSlice(v), nil
	case []uint32:
		return mxarray.FromSlice(v), nil
	case []int64:
		return mxarray.FromSlice(v), nil
	case []uint64:
		return mxarray.FromSlice(v), nil
	case *View:
		if v == nil {
			return mxarray.NewDoubleMatrix(0, 0)
		}
		data := v.Data()
		if data == nil {
			return nil, errors.New(errors.PhaseEncode, errors.KindDestroyed).
				Path(path...).
				Detail("view has been released").
				Build()
		}
		return e.encode(data, path, depth)
	case *Object:
		if v == nil {
			return mxarray.NewDoubleMatrix(0, 0)
		}
		if a, ok, err := encodeComplex(v); ok {
			return a, err
		}
		keys := v.Keys()
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i], _ = v.Get(k)
		}
		return e.encodeStruct(keys, values, path, depth)
	case []any:
		return e.encodeCell(len(v), func(i int) any { return v[i] }, path, depth)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = v[k]
		}
		return e.encodeStruct(keys, values, path, depth)
	}

	return e.encodeReflect(reflect.ValueOf(v), path, depth)
}

// encodeReflect handles named types, pointers, structs, generic maps and
// slices that the fast type switch does not cover.
func (e *Encoder) encodeReflect(rv reflect.Value, path []string, depth int) (*mxarray.Array, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil, errors.UnsupportedValue(errors.PhaseEncode, path, "invalid value")
	case reflect.Bool:
		return mxarray.NewLogicalScalar(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return mxarray.NewDoubleScalar(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return mxarray.NewDoubleScalar(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return mxarray.NewDoubleScalar(rv.Float()), nil
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		return mxarray.NewComplexScalar(real(c), imag(c)), nil
	case reflect.String:
		return mxarray.NewString(rv.String()), nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return mxarray.NewDoubleMatrix(0, 0)
		}
		return e.encode(rv.Elem().Interface(), path, depth+1)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return e.encodeCell(0, nil, path, depth)
		}
		if rv.Kind() == reflect.Slice {
			if base, ok := numericSliceTypes[rv.Type().Elem().Kind()]; ok && rv.Type() != base && rv.Type().ConvertibleTo(base) {
				return e.encode(rv.Convert(base).Interface(), path, depth)
			}
		}
		return e.encodeCell(rv.Len(), func(i int) any { return rv.Index(i).Interface() }, path, depth)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.UnsupportedValue(errors.PhaseEncode, path, rv.Type().String())
		}
		keys := make([]string, 0, rv.Len())
		byName := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			keys = append(keys, k)
			byName[k] = iter.Value()
		}
		slices.Sort(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = byName[k].Interface()
		}
		return e.encodeStruct(keys, values, path, depth)
	case reflect.Struct:
		fs := e.fields.fields(rv.Type())
		keys := make([]string, 0, len(fs))
		values := make([]any, 0, len(fs))
		for _, f := range fs {
			fv, err := rv.FieldByIndexErr(f.index)
			if err != nil || !fv.CanInterface() {
				continue
			}
			keys = append(keys, f.name)
			values = append(values, fv.Interface())
		}
		return e.encodeStruct(keys, values, path, depth)
	}
	return nil, errors.UnsupportedValue(errors.PhaseEncode, path, rv.Type().String())
}

// encodeComplex recognizes the {re, im} object the decoder produces for
// complex arrays: exactly those keys in that order, holding non-empty typed
// buffers of one class and length. Anything else stays a struct.
func encodeComplex(o *Object) (*mxarray.Array, bool, error) {
	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "re" || keys[1] != "im" {
		return nil, false, nil
	}
	re, _ := o.Get("re")
	im, _ := o.Get("im")
	if v, ok := re.(*View); ok && v != nil {
		re = v.Data()
	}
	if v, ok := im.(*View); ok && v != nil {
		im = v.Data()
	}

	switch re.(type) {
	case []float64:
		return complexColumn[float64](re, im)
	case []float32:
		return complexColumn[float32](re, im)
	case []int8:
		return complexColumn[int8](re, im)
	case []uint8:
		return complexColumn[uint8](re, im)
	case []int16:
		return complexColumn[int16](re, im)
	case []uint16:
		return complexColumn[uint16](re, im)
	case []int32:
		return complexColumn[int32](re, im)
	case []uint32:
		return complexColumn[uint32](re, im)
	case []int64:
		return complexColumn[int64](re, im)
	case []uint64:
		return complexColumn[uint64](re, im)
	}
	return nil, false, nil
}

func complexColumn[T mxarray.Element](re, im any) (*mxarray.Array, bool, error) {
	r := re.([]T)
	i, ok := im.([]T)
	if !ok || len(r) == 0 || len(i) != len(r) {
		return nil, false, nil
	}
	a, err := mxarray.FromSlices(r, i, len(r), 1)
	return a, true, err
}

// numericSliceTypes maps element kinds to the typed buffers that carry them,
// so named slice types such as `type Samples []float32` stay numeric.
var numericSliceTypes = map[reflect.Kind]reflect.Type{
	reflect.Float64: reflect.TypeOf([]float64(nil)),
	reflect.Float32: reflect.TypeOf([]float32(nil)),
	reflect.Int8:    reflect.TypeOf([]int8(nil)),
	reflect.Uint8:   reflect.TypeOf([]uint8(nil)),
	reflect.Int16:   reflect.TypeOf([]int16(nil)),
	reflect.Uint16:  reflect.TypeOf([]uint16(nil)),
	reflect.Int32:   reflect.TypeOf([]int32(nil)),
	reflect.Uint32:  reflect.TypeOf([]uint32(nil)),
	reflect.Int64:   reflect.TypeOf([]int64(nil)),
	reflect.Uint64:  reflect.TypeOf([]uint64(nil)),
}

// encodeStruct builds a scalar struct. keys is a snapshot taken before any
// recursive encode runs.
func (e *Encoder) encodeStruct(keys []string, values []any, path []string, depth int) (*mxarray.Array, error) {
	s, err := mxarray.NewStruct(keys)
	if err != nil {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(path...).
			Cause(err).
			Detail("cannot build struct").
			Build()
	}
	for i, k := range keys {
		child, err := e.encode(values[i], appendPath(path, k), depth+1)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		if err := s.SetFieldByNumber(0, i, child); err != nil {
			child.Destroy()
			s.Destroy()
			return nil, err
		}
	}
	return s, nil
}

// encodeCell builds an n x 1 cell from the values returned by at.
func (e *Encoder) encodeCell(n int, at func(int) any, path []string, depth int) (*mxarray.Array, error) {
	c, err := mxarray.NewCell(n, 1)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		child, err := e.encode(at(i), appendPath(path, "{"+strconv.Itoa(i+1)+"}"), depth+1)
		if err != nil {
			c.Destroy()
			return nil, err
		}
		if err := c.SetCell(i, child); err != nil {
			child.Destroy()
			c.Destroy()
			return nil, err
		}
	}
	return c, nil
}
