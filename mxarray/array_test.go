package mxarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/mxbridge/errors"
)

func TestNormalizeDims(t *testing.T) {
	tests := []struct {
		name  string
		in    []int
		dims  []int
		numel int
	}{
		{"none", nil, []int{0, 0}, 0},
		{"single", []int{3}, []int{3, 1}, 3},
		{"matrix", []int{2, 3}, []int{2, 3}, 6},
		{"trailing singletons", []int{2, 3, 1, 1}, []int{2, 3}, 6},
		{"three d", []int{2, 1, 4}, []int{2, 1, 4}, 8},
		{"zero dim", []int{0, 5}, []int{0, 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims, n, err := normalizeDims(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.dims, dims)
			assert.Equal(t, tt.numel, n)
		})
	}
}

func TestNormalizeDims_Rejects(t *testing.T) {
	_, _, err := normalizeDims([]int{-1, 2})
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	_, _, err = normalizeDims([]int{1 << 20, 1 << 20})
	assert.True(t, errors.IsKind(err, errors.KindOverflow))

	_, _, err = normalizeDims([]int{1 << 40, 0})
	assert.True(t, errors.IsKind(err, errors.KindOverflow), "oversized dimension before a zero one")
}

func TestNumericConstructors(t *testing.T) {
	a, err := NewNumeric(ClassInt16, true, 2, 2)
	require.NoError(t, err)
	defer a.Destroy()

	assert.Equal(t, ClassInt16, a.Class())
	assert.Equal(t, "int16", a.ClassName())
	assert.Equal(t, []int{2, 2}, a.Dims())
	assert.Equal(t, 4, a.NumElements())
	assert.True(t, a.IsComplex())
	assert.True(t, a.IsNumeric())
	assert.False(t, a.IsDouble())

	re, ok := Values[int16](a)
	require.True(t, ok)
	im, ok := ImagValues[int16](a)
	require.True(t, ok)
	assert.Len(t, re, 4)
	assert.Len(t, im, 4)

	_, err = NewNumeric(ClassChar, false, 1, 1)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestScalars(t *testing.T) {
	d := NewDoubleScalar(2.5)
	defer d.Destroy()
	assert.True(t, d.IsScalar())
	assert.Equal(t, 2.5, d.Scalar())

	c := NewComplexScalar(1, -2)
	defer c.Destroy()
	assert.True(t, c.IsComplex())
	assert.Equal(t, []float64{-2}, c.Imag())

	l := NewLogicalScalar(true)
	defer l.Destroy()
	assert.Equal(t, 1.0, l.Scalar())
	assert.Equal(t, []bool{true}, l.Logicals())

	e, err := NewDoubleMatrix(0, 0)
	require.NoError(t, err)
	defer e.Destroy()
	assert.True(t, e.IsEmpty())
	assert.Zero(t, e.Scalar())
}

func TestStrings(t *testing.T) {
	s := NewString("héllo 😀")
	defer s.Destroy()
	assert.True(t, s.IsChar())
	assert.Equal(t, "héllo 😀", s.String())
	// The emoji is a surrogate pair.
	assert.Equal(t, []int{1, 8}, s.Dims())

	nul := NewString("a\x00b")
	defer nul.Destroy()
	assert.Equal(t, "a\x00b", nul.String())

	empty := NewString("")
	defer empty.Destroy()
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.String())

	_, err := NewChars([]uint16{'a', 'b'}, 3, 1)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	rows, err := NewChars([]uint16{'a', 'c', 'b', 'd'}, 2, 2)
	require.NoError(t, err)
	defer rows.Destroy()
	assert.Equal(t, []int{2, 2}, rows.Dims())
}

func TestStructFields(t *testing.T) {
	s, err := NewStruct([]string{"a", "b"}, 1, 2)
	require.NoError(t, err)
	defer s.Destroy()

	assert.Equal(t, 2, s.NumFields())
	assert.Equal(t, []string{"a", "b"}, s.FieldNames())

	name, err := s.FieldName(1)
	require.NoError(t, err)
	assert.Equal(t, "b", name)

	require.NoError(t, s.SetField(1, "b", NewDoubleScalar(7)))
	v, err := s.Field(1, "b")
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.Scalar())

	unset, err := s.Field(0, "a")
	require.NoError(t, err)
	assert.Nil(t, unset)

	_, err = s.Field(2, "a")
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))
	_, err = s.Field(0, "missing")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	_, err = s.FieldName(5)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))

	_, err = NewStruct([]string{"x", "x"})
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
	_, err = NewStruct([]string{""})
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestStructAddField(t *testing.T) {
	s, err := NewStruct([]string{"a"}, 2, 1)
	require.NoError(t, err)
	defer s.Destroy()

	require.NoError(t, s.SetField(0, "a", NewDoubleScalar(1)))
	require.NoError(t, s.SetField(1, "a", NewDoubleScalar(2)))

	n, err := s.AddField("b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.SetField(1, "b", NewString("x")))

	a1, err := s.Field(1, "a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, a1.Scalar())
	b1, err := s.Field(1, "b")
	require.NoError(t, err)
	assert.Equal(t, "x", b1.String())

	again, err := s.AddField("a")
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestCellOwnership(t *testing.T) {
	before := Live()

	c, err := NewCell(2)
	require.NoError(t, err)
	first := NewDoubleScalar(1)
	require.NoError(t, c.SetCell(0, first))
	require.NoError(t, c.SetCell(0, NewDoubleScalar(2)))
	assert.True(t, first.Destroyed(), "replaced child is destroyed")

	_, err = c.Cell(2)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))
	_, err = c.Cell(-1)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))
	assert.True(t, errors.IsKind(c.SetCell(0, c), errors.KindInvalidInput))

	c.Destroy()
	c.Destroy()
	assert.Equal(t, before, Live())

	_, err = c.Cell(0)
	assert.True(t, errors.IsKind(err, errors.KindDestroyed))
}

func TestSetData(t *testing.T) {
	a, err := NewDoubleMatrix(1, 3)
	require.NoError(t, err)
	defer a.Destroy()

	require.NoError(t, a.SetData([]float64{1, 2, 3}, nil))
	assert.Equal(t, []float64{1, 2, 3}, a.Real())

	require.NoError(t, a.SetData([]float64{1, 2, 3}, []float64{4, 5, 6}))
	assert.True(t, a.IsComplex())

	assert.True(t, errors.IsKind(a.SetData([]float64{1}, nil), errors.KindInvalidInput))
	assert.True(t, errors.IsKind(a.SetData([]int32{1, 2, 3}, nil), errors.KindTypeMismatch))

	l, err := NewLogical(2)
	require.NoError(t, err)
	defer l.Destroy()
	require.NoError(t, l.SetData([]bool{true, false}, nil))
	assert.True(t, errors.IsKind(l.SetData([]bool{true, false}, []bool{true, true}), errors.KindTypeMismatch))

	s, err := NewStruct(nil)
	require.NoError(t, err)
	defer s.Destroy()
	assert.True(t, errors.IsKind(s.SetData([]float64{1}, nil), errors.KindTypeMismatch))
}

func TestIndex(t *testing.T) {
	a, err := NewDoubleMatrix(2, 3)
	require.NoError(t, err)
	defer a.Destroy()

	idx, err := a.Index(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, idx)

	idx, err = a.Index(4)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	idx, err = a.Index(1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = a.Index(2, 0)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))
	_, err = a.Index(6)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))
}

func TestUnsupportedClasses(t *testing.T) {
	f := NewFunctionHandle("sin")
	defer f.Destroy()
	assert.Equal(t, ClassFunction, f.Class())
	assert.Equal(t, "function_handle", f.ClassName())
	assert.False(t, f.Class().IsSupported())

	o := NewObject("containers.Map")
	defer o.Destroy()
	assert.Equal(t, "containers.Map", o.ClassName())

	s, err := NewSparse(3, 3)
	require.NoError(t, err)
	defer s.Destroy()
	assert.Equal(t, "sparse", s.ClassName())
	assert.Nil(t, s.Real())
}

func TestFromSlice(t *testing.T) {
	src := []uint8{1, 2, 3}
	a := FromSlice(src)
	defer a.Destroy()

	assert.Equal(t, ClassUint8, a.Class())
	assert.Equal(t, []int{3, 1}, a.Dims())

	src[0] = 9
	v, ok := Values[uint8](a)
	require.True(t, ok)
	assert.Equal(t, []uint8{1, 2, 3}, v, "FromSlice copies")

	_, ok = Values[float64](a)
	assert.False(t, ok)

	m, err := FromSlices([]float32{1, 2, 3, 4}, []float32{0, 0, 1, 1}, 2, 2)
	require.NoError(t, err)
	defer m.Destroy()
	assert.True(t, m.IsComplex())

	before := Live()
	_, err = FromSlices([]float32{1, 2}, nil, 2, 2)
	assert.Error(t, err)
	assert.Equal(t, before, Live())
}
